package ua

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/constraints"
)

// XMLNSAttrib is the xmlns declaration carried by a top-level encoded value.
const XMLNSAttrib = `xmlns="http://opcfoundation.org/UA/2008/02/Types.xsd"`

// Value is an OPC UA built-in value. The graph core stores values opaquely;
// only the XML codec and the enum transformation look inside.
type Value interface {
	XMLEncode(includeXMLNS bool) string
}

// EscapeXML escapes the XML-reserved characters &, < and > in text content.
func EscapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

func encodeScalar(tag, text string, includeXMLNS bool) string {
	x := "<" + tag
	if includeXMLNS {
		x += " " + XMLNSAttrib
	}
	return x + ">" + text + "</" + tag + ">"
}

func intText[T constraints.Signed](v *T) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(int64(*v), 10)
}

func uintText[T constraints.Unsigned](v *T) string {
	if v == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*v), 10)
}

func floatText(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

// Signed and unsigned integer scalars.

type SByte struct{ Value *int8 }

func (v SByte) XMLEncode(includeXMLNS bool) string {
	return encodeScalar("SByte", intText(v.Value), includeXMLNS)
}

type Byte struct{ Value *uint8 }

func (v Byte) XMLEncode(includeXMLNS bool) string {
	return encodeScalar("Byte", uintText(v.Value), includeXMLNS)
}

type Int16 struct{ Value *int16 }

func (v Int16) XMLEncode(includeXMLNS bool) string {
	return encodeScalar("Int16", intText(v.Value), includeXMLNS)
}

type UInt16 struct{ Value *uint16 }

func (v UInt16) XMLEncode(includeXMLNS bool) string {
	return encodeScalar("UInt16", uintText(v.Value), includeXMLNS)
}

type Int32 struct{ Value *int32 }

func (v Int32) XMLEncode(includeXMLNS bool) string {
	return encodeScalar("Int32", intText(v.Value), includeXMLNS)
}

type UInt32 struct{ Value *uint32 }

func (v UInt32) XMLEncode(includeXMLNS bool) string {
	return encodeScalar("UInt32", uintText(v.Value), includeXMLNS)
}

type Int64 struct{ Value *int64 }

func (v Int64) XMLEncode(includeXMLNS bool) string {
	return encodeScalar("Int64", intText(v.Value), includeXMLNS)
}

type UInt64 struct{ Value *uint64 }

func (v UInt64) XMLEncode(includeXMLNS bool) string {
	return encodeScalar("UInt64", uintText(v.Value), includeXMLNS)
}

// Floating point scalars.

type Float struct{ Value *float64 }

func (v Float) XMLEncode(includeXMLNS bool) string {
	return encodeScalar("Float", floatText(v.Value), includeXMLNS)
}

type Double struct{ Value *float64 }

func (v Double) XMLEncode(includeXMLNS bool) string {
	return encodeScalar("Double", floatText(v.Value), includeXMLNS)
}

// String carries an optional string value; a nil pointer encodes empty.
type String struct{ Value *string }

func (v String) XMLEncode(includeXMLNS bool) string {
	text := ""
	if v.Value != nil {
		text = EscapeXML(*v.Value)
	}
	return encodeScalar("String", text, includeXMLNS)
}

// Guid is a string-valued guid.
type Guid struct{ Value *string }

func (v Guid) XMLEncode(includeXMLNS bool) string {
	text := ""
	if v.Value != nil {
		text = *v.Value
	}
	return encodeScalar("Guid", text, includeXMLNS)
}

type DateTime struct{ Value *time.Time }

func (v DateTime) XMLEncode(includeXMLNS bool) string {
	text := ""
	if v.Value != nil {
		text = v.Value.Format(time.RFC3339Nano)
	}
	return encodeScalar("DateTime", text, includeXMLNS)
}

type Boolean struct{ Value *bool }

func (v Boolean) XMLEncode(includeXMLNS bool) string {
	text := ""
	if v.Value != nil {
		if *v.Value {
			text = "true"
		} else {
			text = "false"
		}
	}
	return encodeScalar("Boolean", text, includeXMLNS)
}

type ByteString struct{ Value []byte }

func (v ByteString) XMLEncode(includeXMLNS bool) string {
	text := ""
	if v.Value != nil {
		text = base64.StdEncoding.EncodeToString(v.Value)
	}
	return encodeScalar("ByteString", text, includeXMLNS)
}

// LocalizedText is a locale-tagged string.
type LocalizedText struct {
	Text   *string
	Locale *string
}

func (v LocalizedText) XMLEncode(includeXMLNS bool) string {
	x := "<LocalizedText"
	if includeXMLNS {
		x += " " + XMLNSAttrib
	}
	x += ">"
	x += "<Locale>"
	if v.Locale != nil {
		x += *v.Locale
	}
	x += "</Locale>"
	x += "<Text>"
	if v.Text != nil {
		x += EscapeXML(*v.Text)
	}
	x += "</Text>"
	return x + "</LocalizedText>"
}

// Structure preserves an unrecognized structured body verbatim.
type Structure struct{ XML string }

func (v Structure) XMLEncode(includeXMLNS bool) string {
	return v.XML
}

// ExtensionObject is an opaque extension body with its encoding TypeId.
type ExtensionObject struct {
	TypeID *NodeID
	Body   Value
}

func (v ExtensionObject) XMLEncode(includeXMLNS bool) string {
	x := "<ExtensionObject"
	if includeXMLNS {
		x += " " + XMLNSAttrib
	}
	x += ">"
	x += "<TypeId>"
	if v.TypeID != nil {
		x += v.TypeID.XMLEncode(false)
	}
	x += "</TypeId>"
	x += "<Body>"
	if v.Body != nil {
		x += v.Body.XMLEncode(false)
	}
	x += "</Body>"
	return x + "</ExtensionObject>"
}

// EngineeringUnits is the decoded EUInformation extension (TypeId i=888).
type EngineeringUnits struct {
	DisplayName  LocalizedText
	Description  LocalizedText
	UnitID       int32
	NamespaceURI string
}

func (v EngineeringUnits) XMLEncode(includeXMLNS bool) string {
	locale := func(l *string) string {
		if l != nil {
			return *l
		}
		return "en"
	}
	text := func(t *string) string {
		if t != nil {
			return *t
		}
		return ""
	}
	body := "<EUInformation>"
	body += "<NamespaceUri>" + v.NamespaceURI + "</NamespaceUri>"
	body += "<UnitId>" + strconv.FormatInt(int64(v.UnitID), 10) + "</UnitId>"
	body += "<DisplayName><Locale>" + locale(v.DisplayName.Locale) + "</Locale><Text>" + text(v.DisplayName.Text) + "</Text></DisplayName>"
	body += "<Description><Locale>" + locale(v.Description.Locale) + "</Locale><Text>" + text(v.Description.Text) + "</Text></Description>"
	body += "</EUInformation>"

	typeID := NodeID{Namespace: 0, Kind: KindNumeric, Value: "888"}
	return ExtensionObject{TypeID: &typeID, Body: Structure{XML: body}}.XMLEncode(includeXMLNS)
}

// EURange is the decoded Range extension (TypeId i=885).
type EURange struct {
	Low  float64
	High float64
}

func (v EURange) XMLEncode(includeXMLNS bool) string {
	body := "<Range>"
	body += "<Low>" + strconv.FormatFloat(v.Low, 'g', -1, 64) + "</Low>"
	body += "<High>" + strconv.FormatFloat(v.High, 'g', -1, 64) + "</High>"
	body += "</Range>"

	typeID := NodeID{Namespace: 0, Kind: KindNumeric, Value: "885"}
	return ExtensionObject{TypeID: &typeID, Body: Structure{XML: body}}.XMLEncode(includeXMLNS)
}

// Enumeration is an Int32 enriched with its decoded label and the browse
// name of its enumeration DataType. It encodes as a plain Int32.
type Enumeration struct {
	Value *int32
	Label string
	Name  string
}

func (v Enumeration) XMLEncode(includeXMLNS bool) string {
	return encodeScalar("Int32", intText(v.Value), includeXMLNS)
}

// ListOf is a homogeneous list of values with the element type name.
type ListOf struct {
	TypeName string
	Values   []Value
}

func (v ListOf) XMLEncode(includeXMLNS bool) string {
	tag := "ListOf" + v.TypeName
	x := "<" + tag
	if includeXMLNS {
		x += " " + XMLNSAttrib
	}
	x += ">"
	for _, elem := range v.Values {
		x += elem.XMLEncode(false)
	}
	return x + "</" + tag + ">"
}

// DataTypeField is one field of a DataType <Definition>.
type DataTypeField struct {
	Name        string
	Value       string
	Description string
}

func (v DataTypeField) XMLEncode(includeXMLNS bool) string {
	x := `<Field Name="` + v.Name + `" Value="` + v.Value + `"`
	if includeXMLNS {
		x += " " + XMLNSAttrib
	}
	x += ">"
	x += "<Description>" + v.Description + "</Description>"
	return x + "</Field>"
}

// DataTypeDefinition is a DataType <Definition> block.
type DataTypeDefinition struct {
	Name   string
	Fields []DataTypeField
}

func (v DataTypeDefinition) XMLEncode(includeXMLNS bool) string {
	x := `<Definition Name="` + v.Name + `"`
	if includeXMLNS {
		x += " " + XMLNSAttrib
	}
	x += ">"
	parts := make([]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		parts = append(parts, f.XMLEncode(false))
	}
	return x + strings.Join(parts, "\n") + "</Definition>"
}
