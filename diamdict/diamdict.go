package diamdict

/*
Package diamdict implements the process-wide Diameter dictionary: a
read-mostly catalog of vendors, applications, AVP types, enumerated
values, commands and their AVP rules, loaded once from a JSON schema and
then consulted concurrently by the codec and the validator.

*/

import (
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/exp/slices"
)

// One for each Diamter AVP Type
const (
	None         = 0
	OctetString  = 1
	Integer32    = 2
	Integer64    = 3
	Unsigned32   = 4
	Unsigned64   = 5
	Float32      = 6
	Float64      = 7
	Grouped      = 8
	Address      = 9
	Time         = 10
	UTF8String   = 11
	DiamIdent    = 12
	DiameterURI  = 13
	Enumerated   = 14
	IPFilterRule = 15

	// Radius types
	IPv4Address = 1001
	IPv6Address = 1002
	IPv6Prefix  = 1003
)

// EntityKind identifies which of the dictionary's five entity kinds (plus
// Rule, which is always a child of a Command or a grouped AVP) an Entry
// returned by New/Search holds.
type EntityKind int

const (
	KindVendor EntityKind = iota
	KindApplication
	KindType
	KindEnumVal
	KindAVP
	KindCommand
	KindRule
)

// RulePosition is a Rule's position within its owner's AVP list.
type RulePosition int

const (
	FixedHead RulePosition = iota
	Required
	Optional
)

// Unbounded is the Max value meaning "no upper bound".
const Unbounded = -1

// VendorData is the payload New(KindVendor, ...) expects.
type VendorData struct {
	Id   uint32
	Name string
}

// CommandData is the payload New(KindCommand, ...) expects: a command
// belongs to an already-registered application.
type CommandData struct {
	AppCode uint32
	Command DiameterCommand
}

// Rule is a child of either a grouped AVP or a Command: it constrains how
// many times a named AVP may appear, and in what position.
type Rule struct {
	AVP      string
	Vendor   uint32
	Position RulePosition
	Min      int
	Max      int // Unbounded (-1) if unconstrained
	Order    int
}

// VendorId and code of AVP in a single attribute
type AVPCode struct {
	VendorId uint32
	Code     uint32
}

// Attributes of a Grouped AVP. Kept as the shape validateAVPSet and the
// dictionary's JSON schema already use (Mandatory/MinOccurs/MaxOccurs);
// Position/Order expose the same information in Rule's vocabulary for
// callers that walk rule sets generically instead of by AVP name.
type GroupedProperties struct {
	Mandatory bool
	MinOccurs int
	MaxOccurs int
	Position  RulePosition
	Order     int
}

func (gp GroupedProperties) toRule(avpName string, vendor uint32) Rule {
	pos := Optional
	if gp.Mandatory {
		pos = Required
	}
	if gp.Position != 0 {
		pos = gp.Position
	}
	max := gp.MaxOccurs
	if max == 0 {
		max = Unbounded
	}
	return Rule{AVP: avpName, Vendor: vendor, Position: pos, Min: gp.MinOccurs, Max: max, Order: gp.Order}
}

// Diameter Dictionary elements
type AVPDictItem struct {
	VendorId     uint32 // 3 bytes required according to RFC 6733
	Code         uint32 // 3 bytes required according to RFC 6733
	Name         string
	DiameterType int                          // One of the constants above
	EnumValues   map[string]int               // non nil only in enum type
	EnumCodes    map[int]string               // non  nil only in enum type
	Group        map[string]GroupedProperties // non nil only in grouped type
	Rules        []Rule                       // ordered view of Group, for generic rule walkers
}

// Represents a Diameter Command
type DiameterCommand struct {
	Name     string
	Code     uint32
	Request  map[string]GroupedProperties
	Response map[string]GroupedProperties

	RequestRules  []Rule
	ResponseRules []Rule
}

// Represents a Diameter Application
type DiameterApplication struct {
	Name     string
	Code     uint32
	AppType  string
	Commands []DiameterCommand

	CommandByName map[string]DiameterCommand

	CommandByCode map[uint32]DiameterCommand
}

// avpCodeEntry is the sorted-by-(vendor,code) index backing
// GetAVPFromCode's binary search.
type avpCodeEntry struct {
	key  AVPCode
	item AVPDictItem
}

func lessAVPCode(a, b AVPCode) int {
	if a.VendorId != b.VendorId {
		if a.VendorId < b.VendorId {
			return -1
		}
		return 1
	}
	if a.Code != b.Code {
		if a.Code < b.Code {
			return -1
		}
		return 1
	}
	return 0
}

// Represents the full Diameter Dictionary
type DiameterDict struct {
	mu sync.RWMutex

	// Map of vendor id to vendor name
	VendorById map[uint32]string

	// Map of vendor name to vendor id
	VendorByName map[string]uint32

	// Map of avp code to name. Name is <vendorName>-<attributeName>
	AVPByCode map[AVPCode]AVPDictItem

	// Map of avp name to code
	AVPByName map[string]AVPDictItem

	// Map of app names
	AppByName map[string]DiameterApplication

	// Map of app codes
	AppByCode map[uint32]DiameterApplication

	// avpsByCode is AVPByCode's entries sorted by (VendorId, Code), kept in
	// step with AVPByCode/AVPByName on every insert; GetAVPFromCode
	// resolves against it with a binary search instead of the map, giving
	// an explicit O(log n) lookup path alongside the O(1) map.
	avpsByCode []avpCodeEntry
}

// NewEmptyDictionary returns a dictionary with no entries, ready for
// New() calls. Used when building or extending a dictionary at runtime
// (e.g. a JSON-dictionary-loader extension adding vendor-specific AVPs
// after the base schema has been loaded) rather than from one JSON blob.
func NewEmptyDictionary() *DiameterDict {
	return &DiameterDict{
		VendorById:   make(map[uint32]string),
		VendorByName: make(map[string]uint32),
		AVPByCode:    make(map[AVPCode]AVPDictItem),
		AVPByName:    make(map[string]AVPDictItem),
		AppByName:    make(map[string]DiameterApplication),
		AppByCode:    make(map[uint32]DiameterApplication),
	}
}

// New adds one entry to the dictionary, taking the write lock for the
// duration. It accepts Vendor, AVP, Application and Command entries. It
// rejects EEXIST on a duplicate primary key and EINVAL on a broken parent
// relationship (a Command referencing an Application that was not
// registered first); any other kind is rejected with EINVAL.
func (dd *DiameterDict) New(kind EntityKind, data interface{}) error {
	dd.mu.Lock()
	defer dd.mu.Unlock()

	switch kind {
	case KindVendor:
		v := data.(VendorData)
		if _, exists := dd.VendorById[v.Id]; exists {
			return fmt.Errorf("EEXIST: vendor id %d already defined", v.Id)
		}
		dd.VendorById[v.Id] = v.Name
		dd.VendorByName[v.Name] = v.Id
		return nil

	case KindAVP:
		item := data.(AVPDictItem)
		code := AVPCode{VendorId: item.VendorId, Code: item.Code}
		if _, exists := dd.AVPByCode[code]; exists {
			return fmt.Errorf("EEXIST: avp (%d,%d) already defined", item.VendorId, item.Code)
		}
		if _, exists := dd.AVPByName[item.Name]; exists {
			return fmt.Errorf("EEXIST: avp name %s already defined", item.Name)
		}
		dd.insertAVPLocked(code, item)
		return nil

	case KindApplication:
		app := data.(DiameterApplication)
		if _, exists := dd.AppByCode[app.Code]; exists {
			return fmt.Errorf("EEXIST: application code %d already defined", app.Code)
		}
		if app.CommandByName == nil {
			app.CommandByName = make(map[string]DiameterCommand)
		}
		if app.CommandByCode == nil {
			app.CommandByCode = make(map[uint32]DiameterCommand)
		}
		dd.AppByCode[app.Code] = app
		dd.AppByName[app.Name] = app
		return nil

	case KindCommand:
		cmd := data.(CommandData)
		app, ok := dd.AppByCode[cmd.AppCode]
		if !ok {
			return fmt.Errorf("EINVAL: application %d not defined for command %s", cmd.AppCode, cmd.Command.Name)
		}
		if _, exists := app.CommandByCode[cmd.Command.Code]; exists {
			return fmt.Errorf("EEXIST: command code %d already defined for application %d", cmd.Command.Code, cmd.AppCode)
		}
		app.CommandByCode[cmd.Command.Code] = cmd.Command
		app.CommandByName[cmd.Command.Name] = cmd.Command
		app.Commands = append(app.Commands, cmd.Command)
		dd.AppByCode[cmd.AppCode] = app
		dd.AppByName[app.Name] = app
		return nil

	default:
		return fmt.Errorf("EINVAL: unsupported entity kind %d", kind)
	}
}

// insertAVPLocked must be called with mu held for writing.
func (dd *DiameterDict) insertAVPLocked(code AVPCode, item AVPDictItem) {
	dd.AVPByCode[code] = item
	dd.AVPByName[item.Name] = item

	idx, found := slices.BinarySearchFunc(dd.avpsByCode, code, func(e avpCodeEntry, c AVPCode) int {
		return lessAVPCode(e.key, c)
	})
	entry := avpCodeEntry{key: code, item: item}
	if found {
		dd.avpsByCode[idx] = entry
		return
	}
	dd.avpsByCode = slices.Insert(dd.avpsByCode, idx, entry)
}

// Search looks up an entry by kind and criterion ("code", "name",
// "code+vendor"). It is a read-lock-guarded convenience wrapper over the
// same maps/slice GetAVPFromCode/GetAVPFromName/AppByCode/AppByName use
// directly; callers that already know which accessor they want are free
// to call it instead.
func (dd *DiameterDict) Search(kind EntityKind, criterion string, key interface{}) (interface{}, error) {
	switch kind {
	case KindAVP:
		switch criterion {
		case "code", "code+vendor":
			return dd.GetAVPFromCode(key.(AVPCode))
		case "name":
			return dd.GetAVPFromName(key.(string))
		}
	case KindApplication:
		dd.mu.RLock()
		defer dd.mu.RUnlock()
		switch criterion {
		case "code":
			if app, ok := dd.AppByCode[key.(uint32)]; ok {
				return app, nil
			}
			return DiameterApplication{}, fmt.Errorf("application code %v not found", key)
		case "name":
			if app, ok := dd.AppByName[key.(string)]; ok {
				return app, nil
			}
			return DiameterApplication{}, fmt.Errorf("application name %v not found", key)
		}
	case KindVendor:
		dd.mu.RLock()
		defer dd.mu.RUnlock()
		switch criterion {
		case "id":
			if name, ok := dd.VendorById[key.(uint32)]; ok {
				return name, nil
			}
			return "", fmt.Errorf("vendor id %v not found", key)
		case "name":
			if id, ok := dd.VendorByName[key.(string)]; ok {
				return id, nil
			}
			return uint32(0), fmt.Errorf("vendor name %v not found", key)
		}
	}
	return nil, fmt.Errorf("EINVAL: unsupported search kind=%d criterion=%s", kind, criterion)
}

// GetVal returns the typed payload held by a Search/New result. Provided
// for callers that only hold an interface{} and want a name symmetric
// with getval() from the dictionary's own terms.
func GetVal(entry interface{}) interface{} { return entry }

// GetType reports the entity kind of a value returned from Search, to the
// extent it can be inferred from its Go type.
func GetType(entry interface{}) EntityKind {
	switch entry.(type) {
	case AVPDictItem:
		return KindAVP
	case DiameterApplication:
		return KindApplication
	case DiameterCommand:
		return KindCommand
	case string, uint32:
		return KindVendor
	default:
		return -1
	}
}

// GetDict returns the owning dictionary, mirroring getdict() from the
// dictionary's own terms.
func (dd *DiameterDict) GetDict() *DiameterDict { return dd }

// GetAVPFromCode returns an empty dictionary item if the code is not
// found. The caller may decide to go on with an UNKNOWN dictionary item
// when the error is returned. Resolves via a binary search over the
// (vendor,code)-sorted index rather than the map, for an explicit
// O(log n) lookup path.
func (dd *DiameterDict) GetAVPFromCode(code AVPCode) (AVPDictItem, error) {
	dd.mu.RLock()
	defer dd.mu.RUnlock()

	idx, found := slices.BinarySearchFunc(dd.avpsByCode, code, func(e avpCodeEntry, c AVPCode) int {
		return lessAVPCode(e.key, c)
	})
	if !found {
		return AVPDictItem{Name: "UNKNOWN"}, fmt.Errorf("%v not found in dictionary", code)
	}
	return dd.avpsByCode[idx].item, nil
}

// GetAVPFromName returns an empty dictionary item if the name is not
// found. The caller may decide to go on with an UNKNOWN dictionary item
// when the error is returned.
func (dd *DiameterDict) GetAVPFromName(name string) (AVPDictItem, error) {
	dd.mu.RLock()
	defer dd.mu.RUnlock()

	di, ok := dd.AVPByName[name]
	if !ok {
		di.Name = "UNKNOWN"
		return di, fmt.Errorf("%s not found in dictionary", name)
	}
	return di, nil
}

// GetFromCode is kept as an alias of GetAVPFromCode for callers written
// against the older, shorter name.
func (dd *DiameterDict) GetFromCode(code AVPCode) (AVPDictItem, error) { return dd.GetAVPFromCode(code) }

// GetFromName is kept as an alias of GetAVPFromName for callers written
// against the older, shorter name.
func (dd *DiameterDict) GetFromName(name string) (AVPDictItem, error) { return dd.GetAVPFromName(name) }

// Returns a Diameter Dictionary object from its serialized representation
func NewDictionaryFromJSON(data []byte) *DiameterDict {

	// Unmarshall from JSON
	var jDict jDiameterDict
	json.Unmarshal(data, &jDict)

	dict := NewEmptyDictionary()

	// Build the vendor maps. Vendor ids/names are assumed unique in a
	// well-formed schema; New()'s EEXIST path exists for the runtime
	// extension case (dict_json-style incremental loads), not for this
	// bulk load, so duplicates here are simply overwritten.
	for _, v := range jDict.Vendors {
		dict.VendorById[v.VendorId] = v.VendorName
		dict.VendorByName[v.VendorName] = v.VendorId
	}

	// Build the AVP maps, keeping the sorted code index in step.
	for _, vendorAVPs := range jDict.Avps {
		vendorId := vendorAVPs.VendorId
		vendorName := dict.VendorById[vendorId]

		// For a specific vendor
		for _, attr := range vendorAVPs.Attributes {
			avpDictItem := attr.toAVPDictItem(vendorId, vendorName)
			code := AVPCode{vendorId, attr.Code}
			dict.mu.Lock()
			dict.insertAVPLocked(code, avpDictItem)
			dict.mu.Unlock()
		}
	}

	// Build the applications map
	for _, app := range jDict.Applications {
		app.CommandByName = make(map[string]DiameterCommand)
		app.CommandByCode = make(map[uint32]DiameterCommand)
		for _, command := range app.Commands {
			command.RequestRules = rulesFromGroup(command.Request)
			command.ResponseRules = rulesFromGroup(command.Response)

			// Fill the commands map for the application
			app.CommandByCode[command.Code] = command
			app.CommandByName[command.Name] = command
		}

		// Fill the Applications map
		dict.AppByCode[app.Code] = app
		dict.AppByName[app.Name] = app
	}

	return dict
}

// rulesFromGroup builds the ordered Rule view of a name-keyed rule map,
// sorted by Order then by AVP name so iteration is deterministic.
func rulesFromGroup(group map[string]GroupedProperties) []Rule {
	if group == nil {
		return nil
	}
	rules := make([]Rule, 0, len(group))
	for name, gp := range group {
		rules = append(rules, gp.toRule(name, 0))
	}
	slices.SortFunc(rules, func(a, b Rule) int {
		if a.Order != b.Order {
			if a.Order < b.Order {
				return -1
			}
			return 1
		}
		if a.AVP < b.AVP {
			return -1
		}
		if a.AVP > b.AVP {
			return 1
		}
		return 0
	})
	return rules
}

/*
The following types are helpers for unserializing the JSON Diameter Dictionary
*/

// To Unmarshall Dictionary from Json
type jDiameterAVP struct {
	Code       uint32
	Name       string
	Type       string
	EnumValues map[string]int
	Group      map[string]GroupedProperties
}

func (javp jDiameterAVP) toAVPDictItem(v uint32, vs string) AVPDictItem {
	var diameterType int
	switch javp.Type {
	case "None":
		diameterType = None
	case "OctetString":
		diameterType = OctetString
	case "Integer32":
		diameterType = Integer32
	case "Integer64":
		diameterType = Integer64
	case "Unsigned32":
		diameterType = Unsigned32
	case "Unsigned64":
		diameterType = Unsigned64
	case "Float32":
		diameterType = Float32
	case "Float64":
		diameterType = Float64
	case "Grouped":
		diameterType = Grouped
	case "Address":
		diameterType = Address
	case "Time":
		diameterType = Time
	case "UTF8String":
		diameterType = UTF8String
	case "DiamIdent":
		diameterType = DiamIdent
	case "DiameterURI":
		diameterType = DiameterURI
	case "Enumerated":
		diameterType = Enumerated
	case "IPFilterRule":
		diameterType = IPFilterRule

	// Radius types
	case "IPv4Address":
		diameterType = IPv4Address
	case "IPv6Address":
		diameterType = IPv6Address
	case "IPv6Prefix":
		diameterType = IPv6Prefix
	default:
		panic(javp.Type + " is not a valid DiameterType")
	}

	var codes map[int]string
	if javp.EnumValues != nil {
		codes = make(map[int]string)
		for enumName, enumValue := range javp.EnumValues {
			codes[enumValue] = enumName
		}
	}

	var namePrefix string
	if vs != "" {
		namePrefix = vs + "-"
	}

	name := namePrefix + javp.Name

	var rules []Rule
	if javp.Group != nil {
		rules = rulesFromGroup(javp.Group)
	}

	return AVPDictItem{
		VendorId:     v,
		Code:         javp.Code,
		Name:         name,
		DiameterType: diameterType,
		EnumValues:   javp.EnumValues,
		EnumCodes:    codes,
		Group:        javp.Group,
		Rules:        rules,
	}
}

type jDiameterVendorAVPs struct {
	VendorId   uint32
	Attributes []jDiameterAVP
}

type jDiameterDict struct {
	Version int
	Vendors []struct {
		VendorId   uint32
		VendorName string
	}
	Avps         []jDiameterVendorAVPs
	Applications []DiameterApplication
}
