package fhir

import (
	"encoding/json"
	"testing"
)

const sampleBundle = `{
  "resourceType": "Bundle",
  "type": "document",
  "entry": [
    {
      "fullUrl": "urn:uuid:allergy-1",
      "resource": {
        "resourceType": "AllergyIntolerance",
        "id": "allergy-1",
        "clinicalStatus": {
          "coding": [{"system": "http://terminology.hl7.org/CodeSystem/allergyintolerance-clinical", "code": "active"}]
        },
        "category": ["food"],
        "criticality": "high",
        "code": {
          "coding": [{"system": "http://snomed.info/sct", "code": "91935009", "display": "Allergy to peanut"}]
        },
        "onsetDateTime": "2015-03-11T10:00:00+01:00",
        "reaction": [
          {
            "manifestation": [{"coding": [{"system": "http://snomed.info/sct", "code": "39579001", "display": "Anaphylaxis"}]}],
            "severity": "severe"
          }
        ]
      }
    },
    {
      "fullUrl": "urn:uuid:med-1",
      "resource": {
        "resourceType": "MedicationStatement",
        "id": "med-1",
        "status": "active",
        "medicationCodeableConcept": {
          "coding": [{"system": "http://www.whocc.no/atc", "code": "N02BE01", "display": "paracetamol"}]
        },
        "effectiveDateTime": "2021-06-01",
        "dosage": [
          {
            "text": "1 tablet twice daily",
            "doseAndRate": [{"doseQuantity": {"value": 500, "unit": "mg", "system": "http://unitsofmeasure.org", "code": "mg"}}]
          }
        ]
      }
    },
    {
      "fullUrl": "urn:uuid:obs-1",
      "resource": {
        "resourceType": "Observation",
        "id": "obs-1",
        "status": "final",
        "code": {"coding": [{"system": "http://loinc.org", "code": "8867-4", "display": "Heart rate"}]},
        "effectiveDateTime": "2021-06-01T08:30:00Z",
        "valueQuantity": {"value": 72, "unit": "/min", "system": "http://unitsofmeasure.org", "code": "/min"}
      }
    }
  ]
}`

func TestParseBundle(t *testing.T) {
	b, err := ParseBundle([]byte(sampleBundle))
	if err != nil {
		t.Fatalf("ParseBundle() error = %v", err)
	}
	if b.Type != "document" {
		t.Errorf("Type = %q, want document", b.Type)
	}
	if len(b.Entry) != 3 {
		t.Fatalf("len(Entry) = %d, want 3", len(b.Entry))
	}
}

func TestParseBundle_NotABundle(t *testing.T) {
	_, err := ParseBundle([]byte(`{"resourceType": "Patient", "id": "p1"}`))
	if err == nil {
		t.Fatal("expected error for non-Bundle resource")
	}
}

func TestParseBundle_Malformed(t *testing.T) {
	_, err := ParseBundle([]byte(`{"resourceType": "Bundle", "entry": [`))
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestResourcesOfType(t *testing.T) {
	b, err := ParseBundle([]byte(sampleBundle))
	if err != nil {
		t.Fatalf("ParseBundle() error = %v", err)
	}

	allergies := b.ResourcesOfType("AllergyIntolerance")
	if len(allergies) != 1 {
		t.Fatalf("AllergyIntolerance resources = %d, want 1", len(allergies))
	}
	if allergies[0].ID != "allergy-1" {
		t.Errorf("ID = %q, want allergy-1", allergies[0].ID)
	}
	if allergies[0].FullURL != "urn:uuid:allergy-1" {
		t.Errorf("FullURL = %q", allergies[0].FullURL)
	}

	var ai AllergyIntolerance
	if err := json.Unmarshal(allergies[0].Resource, &ai); err != nil {
		t.Fatalf("unmarshal AllergyIntolerance: %v", err)
	}
	if ai.Code.FirstCode() != "91935009" {
		t.Errorf("Code.FirstCode() = %q, want 91935009", ai.Code.FirstCode())
	}
	if len(ai.Reaction) != 1 || ai.Reaction[0].Severity != "severe" {
		t.Errorf("unexpected reactions: %+v", ai.Reaction)
	}

	if got := b.ResourcesOfType("Procedure"); len(got) != 0 {
		t.Errorf("Procedure resources = %d, want 0", len(got))
	}
}

func TestResourcesOfType_SkipsBrokenEntries(t *testing.T) {
	raw := `{
	  "resourceType": "Bundle",
	  "type": "collection",
	  "entry": [
	    {"resource": {"resourceType": "Condition", "id": "c1", "code": {"text": "ok"}}},
	    {"fullUrl": "urn:uuid:empty"},
	    {"resource": {"resourceType": "Condition", "id": "c2"}}
	  ]
	}`
	b, err := ParseBundle([]byte(raw))
	if err != nil {
		t.Fatalf("ParseBundle() error = %v", err)
	}
	conditions := b.ResourcesOfType("Condition")
	if len(conditions) != 2 {
		t.Fatalf("Condition resources = %d, want 2", len(conditions))
	}
	if conditions[0].ID != "c1" || conditions[1].ID != "c2" {
		t.Errorf("unexpected order: %q, %q", conditions[0].ID, conditions[1].ID)
	}
}

func TestMedicationStatementDosage(t *testing.T) {
	b, err := ParseBundle([]byte(sampleBundle))
	if err != nil {
		t.Fatalf("ParseBundle() error = %v", err)
	}
	meds := b.ResourcesOfType("MedicationStatement")
	if len(meds) != 1 {
		t.Fatalf("MedicationStatement resources = %d, want 1", len(meds))
	}
	var ms MedicationStatement
	if err := json.Unmarshal(meds[0].Resource, &ms); err != nil {
		t.Fatalf("unmarshal MedicationStatement: %v", err)
	}
	if ms.MedicationCodeableConcept.FirstCode() != "N02BE01" {
		t.Errorf("medication code = %q", ms.MedicationCodeableConcept.FirstCode())
	}
	if len(ms.Dosage) != 1 || len(ms.Dosage[0].DoseAndRate) != 1 {
		t.Fatalf("unexpected dosage: %+v", ms.Dosage)
	}
	dq := ms.Dosage[0].DoseAndRate[0].DoseQuantity
	if dq.Value.String() != "500" || dq.Unit != "mg" {
		t.Errorf("dose = %s %s, want 500 mg", dq.Value, dq.Unit)
	}
}

func TestFormatDateTime(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"2021-06-01T08:30:00Z", "2021-06-01"},
		{"2015-03-11T10:00:00+01:00", "2015-03-11"},
		{"2021-06-01", "2021-06-01"},
		{"2010-05", "2010-05"},
		{"2010", "2010"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FormatDateTime(tt.in); got != tt.want {
			t.Errorf("FormatDateTime(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
