package knowledge

import (
	"github.com/therapy-abstraction-server/internal/domain"
)

// BaseVersion identifies the embedded protocol table. Bump on any change to
// the entries below so stored abstractions remain attributable.
const BaseVersion = "2025.2"

func intPtr(v int) *int         { return &v }
func doseGy(v float64) *float64 { return &v }

// NewBase loads the embedded protocol knowledge base.
func NewBase() *Base {
	return &Base{
		version:   BaseVersion,
		protocols: systemicProtocols(),
		radiation: radiationProtocols(),
	}
}

// systemicProtocols is the chemo/surgery-oriented protocol table. Entries are
// neuro-oncology focused; dose windows are total radiation dose in Gy when the
// protocol includes a radiation component.
func systemicProtocols() []Protocol {
	return []Protocol{
		{
			Name:               "Stupp protocol (concurrent chemoradiation + adjuvant temozolomide)",
			Reference:          "Stupp et al. NEJM 2005;352:987-96",
			Evidence:           domain.STANDARD_OF_CARE,
			Intent:             domain.CURATIVE,
			IndicationKeywords: []string{"glioblastoma", "gbm", "high-grade glioma", "astrocytoma"},
			MinAge:             intPtr(18),
			RequiresSurgery:    true,
			DrugClasses:        []domain.DrugClass{domain.ALKYLATING_AGENT},
			RequiresRadiation:  true,
			RadiationDoseMinGy: doseGy(54),
			RadiationDoseMaxGy: doseGy(62),
			ConcurrentChemoRT:  true,
		},
		{
			Name:               "Packer regimen (craniospinal RT + cisplatin/vincristine/CCNU)",
			Reference:          "Packer et al. J Clin Oncol 2006;24:4202-8",
			Evidence:           domain.STANDARD_OF_CARE,
			Intent:             domain.CURATIVE,
			IndicationKeywords: []string{"medulloblastoma", "pnet", "embryonal"},
			MaxAge:             intPtr(21),
			RequiresSurgery:    true,
			DrugClasses: []domain.DrugClass{
				domain.PLATINUM_COMPOUND,
				domain.VINCA_ALKALOID,
				domain.ALKYLATING_AGENT,
			},
			RequiresRadiation:  true,
			RadiationDoseMinGy: doseGy(50),
			RadiationDoseMaxGy: doseGy(56),
		},
		{
			Name:               "Infant chemotherapy (radiation-sparing, Head Start style)",
			Reference:          "Dhall et al. Pediatr Blood Cancer 2008;50:1169-75",
			Evidence:           domain.CLINICAL_TRIAL,
			Intent:             domain.CURATIVE,
			IndicationKeywords: []string{"medulloblastoma", "atrt", "embryonal"},
			MaxAge:             intPtr(5),
			RequiresSurgery:    true,
			DrugClasses: []domain.DrugClass{
				domain.ALKYLATING_AGENT,
				domain.PLATINUM_COMPOUND,
				domain.VINCA_ALKALOID,
			},
		},
		{
			Name:               "PCV (procarbazine, CCNU, vincristine)",
			Reference:          "van den Bent et al. J Clin Oncol 2013;31:344-50",
			Evidence:           domain.STANDARD_OF_CARE,
			Intent:             domain.CURATIVE,
			IndicationKeywords: []string{"oligodendroglioma", "anaplastic", "low-grade glioma"},
			DrugClasses: []domain.DrugClass{
				domain.ALKYLATING_AGENT,
				domain.VINCA_ALKALOID,
			},
		},
		{
			Name:               "Carboplatin/vincristine (pediatric low-grade glioma)",
			Reference:          "Packer et al. J Neurosurg 1997;86:747-54",
			Evidence:           domain.STANDARD_OF_CARE,
			Intent:             domain.CURATIVE,
			IndicationKeywords: []string{"low-grade glioma", "pilocytic", "optic pathway"},
			MaxAge:             intPtr(18),
			DrugClasses: []domain.DrugClass{
				domain.PLATINUM_COMPOUND,
				domain.VINCA_ALKALOID,
			},
		},
		{
			Name:               "Bevacizumab salvage",
			Reference:          "Friedman et al. J Clin Oncol 2009;27:4733-40",
			Evidence:           domain.SALVAGE,
			Intent:             domain.PALLIATIVE,
			IndicationKeywords: []string{"glioblastoma", "gbm", "glioma"},
			DrugClasses:        []domain.DrugClass{domain.ANTIANGIOGENIC},
		},
		{
			Name:               "Lomustine monotherapy (recurrent high-grade glioma)",
			Reference:          "Wick et al. NEJM 2017;377:1954-63",
			Evidence:           domain.SALVAGE,
			Intent:             domain.PALLIATIVE,
			IndicationKeywords: []string{"glioblastoma", "gbm", "glioma"},
			DrugClasses:        []domain.DrugClass{domain.ALKYLATING_AGENT},
		},
		{
			Name:               "Checkpoint inhibitor (investigational)",
			Reference:          "Reardon et al. JAMA Oncol 2020;6:1003-10",
			Evidence:           domain.EXPERIMENTAL,
			Intent:             domain.EXPERIMENTAL_INTENT,
			DrugClasses:        []domain.DrugClass{domain.IMMUNOTHERAPY},
		},
		{
			Name:               "BRAF/MEK targeted therapy",
			Reference:          "Wen et al. Lancet Oncol 2022;23:53-64",
			Evidence:           domain.CLINICAL_TRIAL,
			Intent:             domain.CURATIVE,
			IndicationKeywords: []string{"glioma", "ganglioglioma", "pleomorphic"},
			DrugClasses:        []domain.DrugClass{domain.TARGETED_THERAPY},
		},
	}
}

// radiationProtocols is the radiation prescription table.
func radiationProtocols() []RadiationProtocol {
	return []RadiationProtocol{
		{
			Name:               "Standard fractionated RT 60 Gy / 30 fx",
			Reference:          "Stupp et al. NEJM 2005;352:987-96",
			Evidence:           domain.STANDARD_OF_CARE,
			IndicationKeywords: []string{"glioblastoma", "gbm", "high-grade glioma", "astrocytoma"},
			TotalDoseMinGy:     58,
			TotalDoseMaxGy:     62,
			Fractionation:      domain.STANDARD_FRACTIONATION,
			PhaseCount:         1,
		},
		{
			Name:               "Craniospinal irradiation 23.4 Gy + posterior fossa boost",
			Reference:          "Packer et al. J Clin Oncol 2006;24:4202-8",
			Evidence:           domain.STANDARD_OF_CARE,
			IndicationKeywords: []string{"medulloblastoma", "pnet", "embryonal"},
			TotalDoseMinGy:     50,
			TotalDoseMaxGy:     56,
			Fractionation:      domain.STANDARD_FRACTIONATION,
			PhaseCount:         2,
		},
		{
			Name:               "High-risk craniospinal irradiation 36 Gy + boost",
			Reference:          "Gajjar et al. Lancet Oncol 2006;7:813-20",
			Evidence:           domain.STANDARD_OF_CARE,
			IndicationKeywords: []string{"medulloblastoma", "pnet", "embryonal"},
			TotalDoseMinGy:     54,
			TotalDoseMaxGy:     60,
			Fractionation:      domain.STANDARD_FRACTIONATION,
			PhaseCount:         2,
		},
		{
			Name:               "Hypofractionated RT 40.05 Gy / 15 fx (elderly)",
			Reference:          "Roa et al. J Clin Oncol 2004;22:1583-8",
			Evidence:           domain.STANDARD_OF_CARE,
			IndicationKeywords: []string{"glioblastoma", "gbm"},
			TotalDoseMinGy:     39,
			TotalDoseMaxGy:     42,
			Fractionation:      domain.HYPOFRACTIONATED,
			PhaseCount:         1,
		},
		{
			Name:               "Stereotactic radiosurgery (re-irradiation)",
			Reference:          "Tsao et al. Int J Radiat Oncol Biol Phys 2005;63:47-55",
			Evidence:           domain.INSTITUTIONAL_PROTOCOL,
			TotalDoseMinGy:     12,
			TotalDoseMaxGy:     24,
			Fractionation:      domain.STEREOTACTIC,
			PhaseCount:         1,
		},
		{
			Name:               "Palliative whole-brain RT 30 Gy / 10 fx",
			Reference:          "Borgelt et al. Int J Radiat Oncol Biol Phys 1980;6:1-9",
			Evidence:           domain.STANDARD_OF_CARE,
			TotalDoseMinGy:     28,
			TotalDoseMaxGy:     32,
			Fractionation:      domain.HYPOFRACTIONATED,
			PhaseCount:         1,
		},
	}
}
