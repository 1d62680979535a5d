package reader

import (
	"context"
	"fmt"

	"github.com/pithecene-io/chipstream/metrics"
	"github.com/pithecene-io/chipstream/source"
	"github.com/pithecene-io/chipstream/validate"
)

// Inspect runs chip validation over src without writing anything.
// limit > 0 stops after that many events.
func Inspect(ctx context.Context, input string, src source.EventSource, limit int) (*InspectReport, error) {
	report := &InspectReport{Input: input, Rows: []InspectRow{}}
	acc := metrics.NewAccumulator("", "", "")

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ev, err := src.NextEvent(ctx)
		if err != nil {
			return nil, fmt.Errorf("read event: %w", err)
		}
		if ev.IsEmpty() {
			break
		}

		for cs, ok := ev.NextChip(); ok; cs, ok = ev.NextChip() {
			hits := ev.ChipHits(cs.ID)
			clusters := ev.ChipClusters(cs.ID)
			verdict := validate.Chip(hits, clusters)
			split := ev.ChipWasSplit(cs.ID)

			report.Rows = append(report.Rows, InspectRow{
				EventID:     ev.EventIDRaw(),
				Chip:        cs.ID.String(),
				RawHits:     len(hits),
				ClusterHits: validate.ClusterHits(clusters),
				NClusters:   ev.ChipNClusters(cs.ID),
				Words:       len(cs.Words),
				WasSplit:    split,
				Verdict:     verdict.String(),
			})
			if verdict == validate.Accept {
				acc.OnChipAccepted(split)
			} else {
				acc.OnChipSkipped()
			}
		}
		acc.OnEventProcessed()

		if limit > 0 && acc.Snapshot().Events >= int64(limit) {
			break
		}
	}

	report.Summary = acc.Snapshot()
	return report, nil
}
