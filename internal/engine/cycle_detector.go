package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/therapy-abstraction-server/internal/domain"
)

// CycleDetector groups chemotherapy administrations into clinically
// meaningful cycles using a fixed intra-cycle window: administrations within
// the window of a cycle's start belong to that cycle (multi-day schedules),
// anything later opens the next cycle.
type CycleDetector struct {
	logger *logrus.Logger
	cfg    domain.AbstractionConfig
}

// NewCycleDetector creates a new chemotherapy cycle detector.
func NewCycleDetector(logger *logrus.Logger, cfg domain.AbstractionConfig) *CycleDetector {
	return &CycleDetector{logger: logger, cfg: cfg}
}

// Detect operates on the line's chemotherapy administration events only.
func (d *CycleDetector) Detect(line *LineDraft) []domain.ChemoCycle {
	var cycles []domain.ChemoCycle
	var cur *domain.ChemoCycle

	for _, ev := range line.Treatments {
		if ev.Type != domain.CHEMO_ADMINISTRATION {
			continue
		}
		if cur == nil || daysBetween(*cur.StartDate, *ev.Date) > d.cfg.CycleWindowDays {
			if cur != nil {
				cycles = append(cycles, *cur)
			}
			cur = &domain.ChemoCycle{
				CycleNumber: len(cycles) + 1,
				StartDate:   ev.Date,
			}
		}
		cur.EndDate = ev.Date
		cur.AdministrationCount++
		cur.TimelineEventRefs = append(cur.TimelineEventRefs, ev.ID)
	}
	if cur != nil {
		cycles = append(cycles, *cur)
	}

	if len(cycles) > 0 {
		d.logger.WithFields(logrus.Fields{
			"cycles":          len(cycles),
			"administrations": countAdministrations(cycles),
		}).Debug("Detected chemotherapy cycles")
	}

	return cycles
}

func countAdministrations(cycles []domain.ChemoCycle) int {
	n := 0
	for _, c := range cycles {
		n += c.AdministrationCount
	}
	return n
}
