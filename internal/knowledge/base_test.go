package knowledge

import (
	"testing"

	"github.com/therapy-abstraction-server/internal/domain"
)

func TestProtocolsFilterByIndication(t *testing.T) {
	base := NewBase()
	age := 54

	candidates := base.Protocols("Glioblastoma, IDH-wildtype", &age)
	if len(candidates) == 0 {
		t.Fatal("Expected candidates for glioblastoma")
	}

	foundStupp := false
	for _, p := range candidates {
		if p.Name == "Stupp protocol (concurrent chemoradiation + adjuvant temozolomide)" {
			foundStupp = true
		}
		if p.Name == "Packer regimen (craniospinal RT + cisplatin/vincristine/CCNU)" {
			t.Error("Medulloblastoma protocol should not be a glioblastoma candidate")
		}
	}
	if !foundStupp {
		t.Error("Expected Stupp protocol among glioblastoma candidates")
	}
}

func TestProtocolsFilterByAge(t *testing.T) {
	base := NewBase()

	tests := []struct {
		name       string
		age        *int
		wantPacker bool
	}{
		{"pediatric patient", intPtr(8), true},
		{"adult patient", intPtr(40), false},
		{"unknown age skips filter", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found := false
			for _, p := range base.Protocols("medulloblastoma", tt.age) {
				if p.Name == "Packer regimen (craniospinal RT + cisplatin/vincristine/CCNU)" {
					found = true
				}
			}
			if found != tt.wantPacker {
				t.Errorf("Packer candidate = %v, expected %v", found, tt.wantPacker)
			}
		})
	}
}

func TestProtocolsIndicationAgnosticEntriesAlwaysApply(t *testing.T) {
	base := NewBase()
	age := 60

	found := false
	for _, p := range base.Protocols("ependymoma", &age) {
		if len(p.IndicationKeywords) == 0 {
			found = true
		}
	}
	if !found {
		t.Error("Expected indication-agnostic protocols for an unrecognized diagnosis")
	}
}

func TestRadiationProtocolsFilterByIndication(t *testing.T) {
	base := NewBase()

	for _, p := range base.RadiationProtocols("glioblastoma") {
		for _, kw := range p.IndicationKeywords {
			if kw == "medulloblastoma" {
				t.Errorf("Craniospinal prescription %q should not match glioblastoma", p.Name)
			}
		}
	}
}

func TestKnowledgeBaseEntriesAreWellFormed(t *testing.T) {
	base := NewBase()

	if base.Version() == "" {
		t.Error("Expected non-empty knowledge base version")
	}

	for _, p := range base.protocols {
		if p.Name == "" || p.Reference == "" {
			t.Errorf("Protocol missing name or reference: %+v", p)
		}
		if !p.Evidence.IsValid() {
			t.Errorf("Protocol %q has invalid evidence level %q", p.Name, p.Evidence)
		}
		if !p.Intent.IsValid() {
			t.Errorf("Protocol %q has invalid intent %q", p.Name, p.Intent)
		}
		for _, dc := range p.DrugClasses {
			if !dc.IsValid() || dc == domain.UNKNOWN_DRUG_CLASS {
				t.Errorf("Protocol %q requires invalid drug class %q", p.Name, dc)
			}
		}
		if p.RequiresRadiation && p.RadiationDoseMinGy != nil && p.RadiationDoseMaxGy != nil {
			if *p.RadiationDoseMinGy > *p.RadiationDoseMaxGy {
				t.Errorf("Protocol %q has inverted dose window", p.Name)
			}
		}
	}

	for _, p := range base.radiation {
		if p.TotalDoseMinGy > p.TotalDoseMaxGy {
			t.Errorf("Radiation protocol %q has inverted dose window", p.Name)
		}
		if !p.Fractionation.IsValid() {
			t.Errorf("Radiation protocol %q has invalid fractionation %q", p.Name, p.Fractionation)
		}
	}
}
