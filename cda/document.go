// Package cda provides a minimal wire model for HL7 CDA R2 clinical
// documents: just enough of the ClinicalDocument tree to locate coded
// sections and walk their entries. Nothing in this package leaks past the
// extractors; presentation layers only ever see normalized sections.
package cda

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// ClinicalDocument is the root of a CDA document.
// Only the structured body and the header fields the engine needs are
// modeled; unknown elements are ignored by the XML decoder.
type ClinicalDocument struct {
	XMLName      xml.Name `xml:"ClinicalDocument"`
	Title        string   `xml:"title"`
	Code         Code     `xml:"code"`
	LanguageCode Code     `xml:"languageCode"`
	RealmCode    Code     `xml:"realmCode"`
	ID           II       `xml:"id"`
	Component    struct {
		StructuredBody struct {
			Components []struct {
				Section Section `xml:"section"`
			} `xml:"component"`
		} `xml:"structuredBody"`
	} `xml:"component"`
}

// II is an HL7 instance identifier.
type II struct {
	Root      string `xml:"root,attr"`
	Extension string `xml:"extension,attr"`
}

// String renders the identifier as root^extension.
func (id II) String() string {
	if id.Extension == "" {
		return id.Root
	}
	return id.Root + "^" + id.Extension
}

// Code is an HL7 coded element (CD/CE/CV). The same shape covers plain
// codes, status codes and language codes.
type Code struct {
	Code           string `xml:"code,attr"`
	CodeSystem     string `xml:"codeSystem,attr"`
	CodeSystemName string `xml:"codeSystemName,attr"`
	DisplayName    string `xml:"displayName,attr"`
	NullFlavor     string `xml:"nullFlavor,attr"`
	OriginalText   struct {
		Text      string `xml:",chardata"`
		Reference struct {
			Value string `xml:"value,attr"`
		} `xml:"reference"`
	} `xml:"originalText"`
	Translations []Code `xml:"translation"`
}

// IsNull reports whether the element carries a nullFlavor or no code.
func (c Code) IsNull() bool {
	return c.NullFlavor != "" || c.Code == ""
}

// Value is an observation value. CDA overloads <value> via xsi:type, so
// the struct carries both the coded (CD) and the physical-quantity (PQ)
// attribute sets.
type Value struct {
	Code
	Type  string `xml:"type,attr"`
	Value string `xml:"value,attr"`
	Unit  string `xml:"unit,attr"`
}

// Quantity is a PQ dose or measurement quantity.
type Quantity struct {
	Value string `xml:"value,attr"`
	Unit  string `xml:"unit,attr"`
}

// Time is an HL7 timestamp or interval (TS/IVL_TS).
type Time struct {
	Value string `xml:"value,attr"`
	Low   struct {
		Value string `xml:"value,attr"`
	} `xml:"low"`
	High struct {
		Value string `xml:"value,attr"`
	} `xml:"high"`
}

// Best returns the most specific timestamp available: the point value,
// else the interval low, else the interval high.
func (t Time) Best() string {
	switch {
	case t.Value != "":
		return t.Value
	case t.Low.Value != "":
		return t.Low.Value
	default:
		return t.High.Value
	}
}

// Section is one <section> of the structured body.
type Section struct {
	TemplateIDs []II   `xml:"templateId"`
	ID          II     `xml:"id"`
	Code        Code   `xml:"code"`
	Title       string `xml:"title"`
	Text        struct {
		Raw string `xml:",innerxml"`
	} `xml:"text"`
	Entries []Entry `xml:"entry"`
}

// HasTemplate reports whether the section declares the given template ID.
func (s *Section) HasTemplate(root string) bool {
	for _, id := range s.TemplateIDs {
		if id.Root == root {
			return true
		}
	}
	return false
}

// Entry is one <entry> of a section. Exactly one of the clinical
// statement pointers is set, depending on the entry kind.
type Entry struct {
	TypeCode                string                   `xml:"typeCode,attr"`
	Act                     *Act                     `xml:"act"`
	Observation             *Observation             `xml:"observation"`
	SubstanceAdministration *SubstanceAdministration `xml:"substanceAdministration"`
	Procedure               *Procedure               `xml:"procedure"`
	Organizer               *Organizer               `xml:"organizer"`
}

// Act is a CDA act wrapper, used by allergy and problem concern acts.
type Act struct {
	IDs           []II                `xml:"id"`
	Code          Code                `xml:"code"`
	StatusCode    Code                `xml:"statusCode"`
	EffectiveTime Time                `xml:"effectiveTime"`
	Relationships []EntryRelationship `xml:"entryRelationship"`
}

// Observation is a CDA observation: an allergy manifestation, a problem,
// a lab result.
type Observation struct {
	IDs           []II                `xml:"id"`
	Code          Code                `xml:"code"`
	StatusCode    Code                `xml:"statusCode"`
	EffectiveTime Time                `xml:"effectiveTime"`
	Values        []Value             `xml:"value"`
	Participants  []Participant       `xml:"participant"`
	Relationships []EntryRelationship `xml:"entryRelationship"`
}

// Procedure is a CDA procedure statement.
type Procedure struct {
	IDs           []II   `xml:"id"`
	Code          Code   `xml:"code"`
	StatusCode    Code   `xml:"statusCode"`
	EffectiveTime Time   `xml:"effectiveTime"`
	TargetSites   []Code `xml:"targetSiteCode"`
}

// Organizer groups related observations, e.g. a battery of lab results.
type Organizer struct {
	IDs           []II                `xml:"id"`
	Code          Code                `xml:"code"`
	StatusCode    Code                `xml:"statusCode"`
	EffectiveTime Time                `xml:"effectiveTime"`
	Components    []struct {
		Observation *Observation `xml:"observation"`
	} `xml:"component"`
}

// SubstanceAdministration is a CDA medication or immunization statement.
type SubstanceAdministration struct {
	IDs            []II                `xml:"id"`
	NegationInd    string              `xml:"negationInd,attr"`
	MoodCode       string              `xml:"moodCode,attr"`
	StatusCode     Code                `xml:"statusCode"`
	EffectiveTimes []Time              `xml:"effectiveTime"`
	RouteCode      Code                `xml:"routeCode"`
	DoseQuantity   Quantity            `xml:"doseQuantity"`
	Consumable     Consumable          `xml:"consumable"`
	Relationships  []EntryRelationship `xml:"entryRelationship"`
}

// Consumable wraps the administered product.
type Consumable struct {
	ManufacturedProduct struct {
		ManufacturedMaterial struct {
			Code     Code   `xml:"code"`
			Name     string `xml:"name"`
			FormCode Code   `xml:"formCode"`
		} `xml:"manufacturedMaterial"`
	} `xml:"manufacturedProduct"`
}

// EntryRelationship nests one clinical statement under another, e.g. the
// allergy observation under its concern act.
type EntryRelationship struct {
	TypeCode                string                   `xml:"typeCode,attr"`
	Observation             *Observation             `xml:"observation"`
	Act                     *Act                     `xml:"act"`
	SubstanceAdministration *SubstanceAdministration `xml:"substanceAdministration"`
}

// Participant carries a playing entity, e.g. the allergen substance.
type Participant struct {
	TypeCode        string `xml:"typeCode,attr"`
	ParticipantRole struct {
		PlayingEntity struct {
			Code Code   `xml:"code"`
			Name string `xml:"name"`
		} `xml:"playingEntity"`
	} `xml:"participantRole"`
}

// Parse decodes a raw CDA document.
func Parse(data []byte) (*ClinicalDocument, error) {
	var doc ClinicalDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse CDA document: %w", err)
	}
	return &doc, nil
}

// FindSection returns the structured-body section carrying the given
// LOINC section code, or nil when the document has no such section.
func (d *ClinicalDocument) FindSection(loincCode string) *Section {
	for i := range d.Component.StructuredBody.Components {
		s := &d.Component.StructuredBody.Components[i].Section
		if s.Code.Code == loincCode {
			return s
		}
	}
	return nil
}

// FormatTime normalizes an HL7 TS value ("YYYYMMDDhhmmss...") to an
// ISO-8601 date. Values too short to carry a full date pass through
// unchanged; time-of-day precision beyond the date is dropped.
func FormatTime(ts string) string {
	if plus := strings.IndexAny(ts, "+-"); plus > 0 {
		ts = ts[:plus]
	}
	if len(ts) < 8 {
		return ts
	}
	return ts[0:4] + "-" + ts[4:6] + "-" + ts[6:8]
}
