package journal

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SystemRef identifies a star system by its numeric address, its display
// name, or both. Address is 0 when the journal line did not carry one.
type SystemRef struct {
	Address int64  `json:"address,omitempty"`
	Name    string `json:"name,omitempty"`
}

// IsZero reports whether neither an address nor a name is known.
func (r SystemRef) IsZero() bool { return r.Address == 0 && r.Name == "" }

func (r SystemRef) String() string {
	switch {
	case r.Address != 0 && r.Name != "":
		return fmt.Sprintf("%s (%d)", r.Name, r.Address)
	case r.Address != 0:
		return fmt.Sprintf("#%d", r.Address)
	default:
		return r.Name
	}
}

// Event is one decoded journal entry the body tree knows how to consume.
type Event interface {
	Kind() string
	System() SystemRef
}

// BodyScoped is implemented by events that target one body of a system.
// id is -1 when the event names the body only by text.
type BodyScoped interface {
	Event
	BodyRef() (id int, name string)
}

// Header holds the fields every journal line carries.
type Header struct {
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"`
}

// Kind returns the journal event name.
func (h Header) Kind() string { return h.Event }

// ParentType is the kind of ancestor named in a Scan's Parents list.
type ParentType int

const (
	ParentNull ParentType = iota // barycentre
	ParentStar
	ParentPlanet
	ParentRing
)

func (p ParentType) String() string {
	switch p {
	case ParentNull:
		return "Null"
	case ParentStar:
		return "Star"
	case ParentPlanet:
		return "Planet"
	case ParentRing:
		return "Ring"
	default:
		return "Unknown"
	}
}

// ParentRef is one entry of a parent chain, nearest ancestor first.
type ParentRef struct {
	ID   int
	Type ParentType
}

// UnmarshalJSON decodes the journal's single-key object form, e.g. {"Null":0}.
func (p *ParentRef) UnmarshalJSON(b []byte) error {
	var m map[string]int
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	if len(m) != 1 {
		return fmt.Errorf("parent entry has %d keys, want 1", len(m))
	}
	for k, v := range m {
		switch strings.ToLower(k) {
		case "null":
			p.Type = ParentNull
		case "star":
			p.Type = ParentStar
		case "planet":
			p.Type = ParentPlanet
		case "ring":
			p.Type = ParentRing
		default:
			return fmt.Errorf("unknown parent type %q", k)
		}
		p.ID = v
	}
	return nil
}

// MarshalJSON writes the same single-key form it reads.
func (p ParentRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]int{p.Type.String(): p.ID})
}

// Ring is a ring or asteroid belt sub-record of a Scan.
type Ring struct {
	Name      string  `json:"Name"`
	RingClass string  `json:"RingClass"`
	MassMT    float64 `json:"MassMT"`
	InnerRad  float64 `json:"InnerRad"`
	OuterRad  float64 `json:"OuterRad"`
}

// IsBelt reports whether the ring record describes an asteroid belt.
func (r Ring) IsBelt() bool { return strings.HasSuffix(r.Name, " Belt") }

// Scan is the primary survey record of one body.
type Scan struct {
	Header
	ScanType              string      `json:"ScanType"`
	BodyName              string      `json:"BodyName"`
	BodyID                *int        `json:"BodyID,omitempty"`
	Parents               []ParentRef `json:"Parents,omitempty"`
	StarSystem            string      `json:"StarSystem"`
	SystemAddress         int64       `json:"SystemAddress"`
	DistanceFromArrivalLS float64     `json:"DistanceFromArrivalLS"`
	StarType              string      `json:"StarType,omitempty"`
	Subclass              int         `json:"Subclass,omitempty"`
	StellarMass           float64     `json:"StellarMass,omitempty"`
	Luminosity            string      `json:"Luminosity,omitempty"`
	PlanetClass           string      `json:"PlanetClass,omitempty"`
	Atmosphere            string      `json:"Atmosphere,omitempty"`
	Volcanism             string      `json:"Volcanism,omitempty"`
	TerraformState        string      `json:"TerraformState,omitempty"`
	Landable              bool        `json:"Landable,omitempty"`
	MassEM                float64     `json:"MassEM,omitempty"`
	Radius                float64     `json:"Radius,omitempty"`
	SemiMajorAxis         *float64    `json:"SemiMajorAxis,omitempty"`
	Eccentricity          float64     `json:"Eccentricity,omitempty"`
	OrbitalPeriod         float64     `json:"OrbitalPeriod,omitempty"`
	Rings                 []Ring      `json:"Rings,omitempty"`
	ReserveLevel          string      `json:"ReserveLevel,omitempty"`
	WasDiscovered         bool        `json:"WasDiscovered"`
	WasMapped             bool        `json:"WasMapped"`

	// Location is the system the commander was in when the line was written,
	// stamped by the Reader. It is not part of the journal line.
	Location SystemRef `json:"-"`
}

func (e *Scan) System() SystemRef { return SystemRef{Address: e.SystemAddress, Name: e.StarSystem} }

func (e *Scan) BodyRef() (int, string) { return intOr(e.BodyID, -1), e.BodyName }

// HasParentChain reports whether the scan carries a body id and the chain of
// bodies it orbits. Main stars report an id with no chain.
func (e *Scan) HasParentChain() bool { return e.BodyID != nil && len(e.Parents) > 0 }

// IsStar reports whether the scanned body is a star.
func (e *Scan) IsStar() bool { return e.StarType != "" }

// IsPlanet reports whether the scanned body is a planet or moon.
func (e *Scan) IsPlanet() bool { return e.PlanetClass != "" }

// IsBeltClusterBody reports whether the scanned body is an object inside an
// asteroid belt cluster.
func (e *Scan) IsBeltClusterBody() bool {
	return !e.IsStar() && !e.IsPlanet() && strings.Contains(e.BodyName, "Belt Cluster")
}

// ScanBaryCentre is the orbital record of a barycentre.
type ScanBaryCentre struct {
	Header
	StarSystem         string  `json:"StarSystem"`
	SystemAddress      int64   `json:"SystemAddress"`
	BodyID             int     `json:"BodyID"`
	SemiMajorAxis      float64 `json:"SemiMajorAxis"`
	Eccentricity       float64 `json:"Eccentricity"`
	OrbitalInclination float64 `json:"OrbitalInclination"`
	Periapsis          float64 `json:"Periapsis"`
	OrbitalPeriod      float64 `json:"OrbitalPeriod"`
	AscendingNode      float64 `json:"AscendingNode"`
	MeanAnomaly        float64 `json:"MeanAnomaly"`
}

func (e *ScanBaryCentre) System() SystemRef {
	return SystemRef{Address: e.SystemAddress, Name: e.StarSystem}
}

func (e *ScanBaryCentre) BodyRef() (int, string) { return e.BodyID, "" }

// FSSDiscoveryScan carries the discovery counts of a system.
type FSSDiscoveryScan struct {
	Header
	Progress      float64 `json:"Progress"`
	BodyCount     int     `json:"BodyCount"`
	NonBodyCount  int     `json:"NonBodyCount"`
	SystemName    string  `json:"SystemName"`
	SystemAddress int64   `json:"SystemAddress"`
}

func (e *FSSDiscoveryScan) System() SystemRef {
	return SystemRef{Address: e.SystemAddress, Name: e.SystemName}
}

// FSSAllBodiesFound marks that every body of a system has been discovered.
type FSSAllBodiesFound struct {
	Header
	SystemName    string `json:"SystemName"`
	SystemAddress int64  `json:"SystemAddress"`
	Count         int    `json:"Count"`
}

func (e *FSSAllBodiesFound) System() SystemRef {
	return SystemRef{Address: e.SystemAddress, Name: e.SystemName}
}

// FSSSignal is one FSSSignalDiscovered journal line.
type FSSSignal struct {
	Header
	SystemAddress       int64   `json:"SystemAddress"`
	SignalName          string  `json:"SignalName"`
	SignalNameLocalised string  `json:"SignalName_Localised,omitempty"`
	SignalType          string  `json:"SignalType,omitempty"`
	IsStation           bool    `json:"IsStation,omitempty"`
	USSType             string  `json:"USSType,omitempty"`
	ThreatLevel         int     `json:"ThreatLevel,omitempty"`
	TimeRemaining       float64 `json:"TimeRemaining,omitempty"`
}

// SignalList batches consecutive FSSSignalDiscovered lines of one system.
type SignalList struct {
	Header
	SystemAddress int64
	SystemName    string
	Signals       []FSSSignal
}

func (e *SignalList) System() SystemRef {
	return SystemRef{Address: e.SystemAddress, Name: e.SystemName}
}

// CodexEntry is a codex discovery, optionally tied to a body.
type CodexEntry struct {
	Header
	EntryID            int64    `json:"EntryID"`
	Name               string   `json:"Name"`
	NameLocalised      string   `json:"Name_Localised,omitempty"`
	SubCategory        string   `json:"SubCategory"`
	Category           string   `json:"Category"`
	Region             string   `json:"Region"`
	StarSystem         string   `json:"System"`
	SystemAddress      int64    `json:"SystemAddress"`
	BodyID             *int     `json:"BodyID,omitempty"`
	NearestDestination string   `json:"NearestDestination,omitempty"`
	Latitude           *float64 `json:"Latitude,omitempty"`
	Longitude          *float64 `json:"Longitude,omitempty"`
	IsNewEntry         bool     `json:"IsNewEntry,omitempty"`
}

func (e *CodexEntry) System() SystemRef {
	return SystemRef{Address: e.SystemAddress, Name: e.StarSystem}
}

func (e *CodexEntry) BodyRef() (int, string) { return intOr(e.BodyID, -1), "" }

// ScanOrganic is one step of an exobiology sample.
type ScanOrganic struct {
	Header
	ScanType         string `json:"ScanType"`
	Genus            string `json:"Genus"`
	GenusLocalised   string `json:"Genus_Localised,omitempty"`
	Species          string `json:"Species"`
	SpeciesLocalised string `json:"Species_Localised,omitempty"`
	Variant          string `json:"Variant,omitempty"`
	SystemAddress    int64  `json:"SystemAddress"`
	Body             int    `json:"Body"`
}

func (e *ScanOrganic) System() SystemRef { return SystemRef{Address: e.SystemAddress} }

func (e *ScanOrganic) BodyRef() (int, string) { return e.Body, "" }

// Signal is a typed signal count on a body.
type Signal struct {
	Type          string `json:"Type"`
	TypeLocalised string `json:"Type_Localised,omitempty"`
	Count         int    `json:"Count"`
}

// Genus is a biological genus detected on a body.
type Genus struct {
	Genus          string `json:"Genus"`
	GenusLocalised string `json:"Genus_Localised,omitempty"`
}

// BodySignals covers both SAASignalsFound and FSSBodySignals.
type BodySignals struct {
	Header
	BodyName      string   `json:"BodyName"`
	BodyID        int      `json:"BodyID"`
	SystemAddress int64    `json:"SystemAddress"`
	Signals       []Signal `json:"Signals"`
	Genuses       []Genus  `json:"Genuses,omitempty"`
}

func (e *BodySignals) System() SystemRef { return SystemRef{Address: e.SystemAddress} }

func (e *BodySignals) BodyRef() (int, string) { return e.BodyID, e.BodyName }

// SAAScanComplete records a finished surface mapping of a body.
type SAAScanComplete struct {
	Header
	BodyName         string `json:"BodyName"`
	SystemAddress    int64  `json:"SystemAddress"`
	BodyID           int    `json:"BodyID"`
	ProbesUsed       int    `json:"ProbesUsed"`
	EfficiencyTarget int    `json:"EfficiencyTarget"`
}

func (e *SAAScanComplete) System() SystemRef { return SystemRef{Address: e.SystemAddress} }

func (e *SAAScanComplete) BodyRef() (int, string) { return e.BodyID, e.BodyName }

// Touchdown is a landing on a body surface.
type Touchdown struct {
	Header
	Latitude           *float64 `json:"Latitude,omitempty"`
	Longitude          *float64 `json:"Longitude,omitempty"`
	NearestDestination string   `json:"NearestDestination,omitempty"`
	PlayerControlled   bool     `json:"PlayerControlled"`
	StarSystem         string   `json:"StarSystem"`
	SystemAddress      int64    `json:"SystemAddress"`
	Body               string   `json:"Body"`
	BodyID             int      `json:"BodyID"`
	OnStation          bool     `json:"OnStation"`
	OnPlanet           bool     `json:"OnPlanet"`
}

func (e *Touchdown) System() SystemRef { return SystemRef{Address: e.SystemAddress, Name: e.StarSystem} }

func (e *Touchdown) BodyRef() (int, string) { return e.BodyID, e.Body }

// ApproachSettlement is reported when nearing a surface settlement.
type ApproachSettlement struct {
	Header
	Name          string   `json:"Name"`
	NameLocalised string   `json:"Name_Localised,omitempty"`
	MarketID      int64    `json:"MarketID,omitempty"`
	SystemAddress int64    `json:"SystemAddress"`
	BodyID        int      `json:"BodyID"`
	BodyName      string   `json:"BodyName"`
	Latitude      *float64 `json:"Latitude,omitempty"`
	Longitude     *float64 `json:"Longitude,omitempty"`
}

func (e *ApproachSettlement) System() SystemRef { return SystemRef{Address: e.SystemAddress} }

func (e *ApproachSettlement) BodyRef() (int, string) { return e.BodyID, e.BodyName }

// Docked is reported on docking at a station or port.
type Docked struct {
	Header
	StationName    string  `json:"StationName"`
	StationType    string  `json:"StationType"`
	StarSystem     string  `json:"StarSystem"`
	SystemAddress  int64   `json:"SystemAddress"`
	MarketID       int64   `json:"MarketID"`
	DistFromStarLS float64 `json:"DistFromStarLS"`
}

func (e *Docked) System() SystemRef { return SystemRef{Address: e.SystemAddress, Name: e.StarSystem} }

// IsSurfaceStation reports whether the station sits on a body surface.
func (e *Docked) IsSurfaceStation() bool {
	switch strings.ToLower(e.StationType) {
	case "craterport", "crateroutpost", "surfacestation", "onfootsettlement", "planetaryport", "planetaryoutpost":
		return true
	}
	return false
}

// Location covers FSDJump, Location and CarrierJump: the commander is now in
// the named system.
type Location struct {
	Header
	StarSystem    string     `json:"StarSystem"`
	SystemAddress int64      `json:"SystemAddress"`
	StarPos       [3]float64 `json:"StarPos"`
	Body          string     `json:"Body,omitempty"`
	BodyID        *int       `json:"BodyID,omitempty"`
	BodyType      string     `json:"BodyType,omitempty"`
}

func (e *Location) System() SystemRef {
	return SystemRef{Address: e.SystemAddress, Name: e.StarSystem}
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
