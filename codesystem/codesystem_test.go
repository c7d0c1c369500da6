package codesystem

import "testing"

func TestLookup(t *testing.T) {
	tests := []struct {
		name   string
		oid    string
		want   string
		wantOK bool
	}{
		{"snomed", OIDSnomedCT, "SNOMED CT", true},
		{"loinc", OIDLoinc, "LOINC", true},
		{"icd-10", OIDICD10, "ICD-10", true},
		{"rxnorm", OIDRxNorm, "RxNorm", true},
		{"atc", OIDATC, "ATC", true},
		{"ucum", OIDUCUM, "UCUM", true},
		{"unregistered", "9.9.9.9", Unknown, false},
		{"empty", "", Unknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Lookup(tt.oid)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Lookup(%q) = %q, %v; want %q, %v", tt.oid, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestName_BadgeHelper(t *testing.T) {
	if Name(OIDSnomedCT) != "SNOMED CT" {
		t.Errorf("Name(snomed) = %q", Name(OIDSnomedCT))
	}
	if Name("9.9.9.9") != Unknown {
		t.Errorf("Name(unregistered) = %q; want %q", Name("9.9.9.9"), Unknown)
	}
}

func TestOIDForURI(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		want string
	}{
		{"snomed uri", "http://snomed.info/sct", OIDSnomedCT},
		{"loinc uri", "http://loinc.org", OIDLoinc},
		{"ucum uri", "http://unitsofmeasure.org", OIDUCUM},
		{"urn oid unwrapped", "urn:oid:1.2.3.4", "1.2.3.4"},
		{"unknown passes through", "http://example.org/fhir/cs", "http://example.org/fhir/cs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OIDForURI(tt.uri); got != tt.want {
				t.Errorf("OIDForURI(%q) = %q; want %q", tt.uri, got, tt.want)
			}
		})
	}
}

func TestURIForOID_RoundTrip(t *testing.T) {
	for uri, oid := range uriToOID {
		if got := URIForOID(oid); got != uri {
			t.Errorf("URIForOID(%s) = %q; want %q", oid, got, uri)
		}
		if got := OIDForURI(uri); got != oid {
			t.Errorf("OIDForURI(%s) = %q; want %q", uri, got, oid)
		}
	}
	if got := URIForOID("9.9.9.9"); got != "urn:oid:9.9.9.9" {
		t.Errorf("URIForOID(unregistered) = %q", got)
	}
}
