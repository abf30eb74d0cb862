package core

import (
	"context"
	"fmt"

	"metrocore/pkg/domain"
)

// WellLinkageRule restricts well references to samples drawn at test-separator
// sample points, and requires the referenced well to exist.
func WellLinkageRule() domain.Rule {
	return wellLinkageRule{}
}

type wellLinkageRule struct{}

func (wellLinkageRule) Name() string { return "well_linkage" }

func (wellLinkageRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntitySample {
			continue
		}
		sample, ok := domain.DecodeChangePayload[domain.Sample](change.After)
		if !ok || sample.WellID == nil {
			continue
		}
		if _, exists := view.FindWell(*sample.WellID); !exists {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "well_linkage",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("sample %s references unknown well %s", sample.ID, *sample.WellID),
				Entity:   domain.EntitySample,
				EntityID: sample.ID,
			})
			continue
		}
		point, exists := view.FindSamplePoint(sample.SamplePointID)
		if !exists || point.Kind != domain.PointTestSeparator {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "well_linkage",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("sample %s may only link a well at a test-separator sample point", sample.ID),
				Entity:   domain.EntitySample,
				EntityID: sample.ID,
			})
		}
	}
	return res, nil
}
