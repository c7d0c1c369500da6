// Package codesystem provides the static registry of clinical code
// systems: OID to canonical name, and the bidirectional mapping between
// CDA OIDs and FHIR canonical system URIs. Lookups are pure functions over
// static tables and have no failure mode; unknown identifiers yield the
// Unknown marker, never an error.
package codesystem

// Unknown is the marker returned for unregistered OIDs. Presentation
// layers use it for audit badges.
const Unknown = "Unknown"

// Well-known code system OIDs.
const (
	OIDSnomedCT              = "2.16.840.1.113883.6.96"
	OIDLoinc                 = "2.16.840.1.113883.6.1"
	OIDICD10                 = "2.16.840.1.113883.6.3"
	OIDICD10CM               = "2.16.840.1.113883.6.90"
	OIDRxNorm                = "2.16.840.1.113883.6.88"
	OIDATC                   = "2.16.840.1.113883.6.73"
	OIDUCUM                  = "2.16.840.1.113883.6.8"
	OIDEDQM                  = "0.4.0.127.0.16.1.1.2.1"
	OIDCVX                   = "2.16.840.1.113883.12.292"
	OIDGender                = "2.16.840.1.113883.5.1"
	OIDRoute                 = "2.16.840.1.113883.5.112"
	OIDActCode               = "2.16.840.1.113883.5.4"
	OIDObservationInterp     = "2.16.840.1.113883.5.83"
	OIDAllergyClinicalStatus = "2.16.840.1.113883.4.642.3.1373"
	OIDConditionClinical     = "2.16.840.1.113883.4.642.3.164"
	OIDISO3166               = "1.0.3166.1.2.2"
)

// names maps a code system OID to its canonical display name.
var names = map[string]string{
	OIDSnomedCT:              "SNOMED CT",
	OIDLoinc:                 "LOINC",
	OIDICD10:                 "ICD-10",
	OIDICD10CM:               "ICD-10-CM",
	OIDRxNorm:                "RxNorm",
	OIDATC:                   "ATC",
	OIDUCUM:                  "UCUM",
	OIDEDQM:                  "EDQM",
	OIDCVX:                   "CVX",
	OIDGender:                "AdministrativeGender",
	OIDRoute:                 "RouteOfAdministration",
	OIDActCode:               "ActCode",
	OIDObservationInterp:     "ObservationInterpretation",
	OIDAllergyClinicalStatus: "AllergyIntolerance Clinical Status",
	OIDConditionClinical:     "Condition Clinical Status",
	OIDISO3166:               "ISO 3166-1",
}

// uriToOID maps FHIR canonical system URIs to their OIDs. FHIR codings
// carry URIs while CDA and the catalogue are keyed by OID; translating at
// parse time keeps the whole engine in one dual-key space.
var uriToOID = map[string]string{
	"http://snomed.info/sct":                        OIDSnomedCT,
	"http://loinc.org":                              OIDLoinc,
	"http://hl7.org/fhir/sid/icd-10":                OIDICD10,
	"http://hl7.org/fhir/sid/icd-10-cm":             OIDICD10CM,
	"http://www.nlm.nih.gov/research/umls/rxnorm":   OIDRxNorm,
	"http://www.whocc.no/atc":                       OIDATC,
	"http://unitsofmeasure.org":                     OIDUCUM,
	"http://standardterms.edqm.eu":                  OIDEDQM,
	"http://hl7.org/fhir/sid/cvx":                   OIDCVX,
	"http://terminology.hl7.org/CodeSystem/v3-AdministrativeGender":              OIDGender,
	"http://terminology.hl7.org/CodeSystem/v3-RouteOfAdministration":             OIDRoute,
	"http://terminology.hl7.org/CodeSystem/v3-ActCode":                           OIDActCode,
	"http://terminology.hl7.org/CodeSystem/v3-ObservationInterpretation":         OIDObservationInterp,
	"http://terminology.hl7.org/CodeSystem/allergyintolerance-clinical":          OIDAllergyClinicalStatus,
	"http://terminology.hl7.org/CodeSystem/condition-clinical":                   OIDConditionClinical,
	"urn:iso:std:iso:3166": OIDISO3166,
}

// oidToURI is the reverse of uriToOID, built at init.
var oidToURI = make(map[string]string, len(uriToOID))

func init() {
	for uri, oid := range uriToOID {
		oidToURI[oid] = uri
	}
}

// Lookup returns the canonical name for a code system OID.
// Unknown OIDs return (Unknown, false).
func Lookup(oid string) (string, bool) {
	if name, ok := names[oid]; ok {
		return name, true
	}
	return Unknown, false
}

// Name returns the canonical name for an OID, or the Unknown marker.
// It is the badge helper exposed to presentation layers.
func Name(oid string) string {
	name, _ := Lookup(oid)
	return name
}

// IsRegistered reports whether the OID is a known code system.
func IsRegistered(oid string) bool {
	_, ok := names[oid]
	return ok
}

// OIDForURI translates a FHIR canonical system URI into its OID. A URI
// of the form "urn:oid:x.y.z" is unwrapped. Unregistered URIs pass
// through unchanged so the fallback path can still report them verbatim.
func OIDForURI(uri string) string {
	if oid, ok := uriToOID[uri]; ok {
		return oid
	}
	if len(uri) > 8 && uri[:8] == "urn:oid:" {
		return uri[8:]
	}
	return uri
}

// URIForOID translates an OID back into its FHIR canonical system URI,
// synthesizing a "urn:oid:" URI for unregistered systems.
func URIForOID(oid string) string {
	if uri, ok := oidToURI[oid]; ok {
		return uri
	}
	return "urn:oid:" + oid
}
