package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/Bonaventura-EW/olx-monitor/internal/contextkeys"
	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
	"github.com/Bonaventura-EW/olx-monitor/internal/core/port"
)

// BuildWeeklyReportUseCase assembles the weekly digest from the committed
// snapshots and hands it to the renderer and sender. The AI commentary is
// optional: when the collaborator is missing or fails, the report still goes
// out, just without the narrative.
type BuildWeeklyReportUseCase struct {
	profiles     []domain.Profile
	historyStore port.HistoryStorePort
	stateStore   port.StateStorePort
	commentary   port.CommentaryPort
	renderer     port.ReportRendererPort
	sender       port.ReportSenderPort
	changeRatio  float64
}

// NewBuildWeeklyReportUseCase wires the digest pipeline. commentary may be
// nil when no AI collaborator is configured.
func NewBuildWeeklyReportUseCase(
	profiles []domain.Profile,
	historyStore port.HistoryStorePort,
	stateStore port.StateStorePort,
	commentary port.CommentaryPort,
	renderer port.ReportRendererPort,
	sender port.ReportSenderPort,
	changeRatio float64,
) *BuildWeeklyReportUseCase {
	return &BuildWeeklyReportUseCase{
		profiles:     profiles,
		historyStore: historyStore,
		stateStore:   stateStore,
		commentary:   commentary,
		renderer:     renderer,
		sender:       sender,
		changeRatio:  changeRatio,
	}
}

func (uc *BuildWeeklyReportUseCase) Execute(ctx context.Context) error {
	baseLogger := contextkeys.LoggerFromContext(ctx)
	ucLogger := baseLogger.WithFields(port.Fields{"use_case": "BuildWeeklyReport"})
	ucLogger.Info("Assembling weekly report", port.Fields{"profiles": len(uc.profiles)})

	history, err := uc.historyStore.Load(ctx)
	if err != nil {
		return fmt.Errorf("load price history: %w", err)
	}
	states, err := uc.stateStore.Load(ctx)
	if err != nil {
		return fmt.Errorf("load profile states: %w", err)
	}

	now := time.Now()
	weekAgo := now.AddDate(0, 0, -7)
	report := domain.WeeklyReport{GeneratedAt: now}

	snapshots := make([]domain.ProfileSnapshot, 0, len(uc.profiles))
	for _, profile := range uc.profiles {
		state := states[profile.Name]
		if state == nil {
			state = &domain.ProfileState{}
		}
		active := history.ActiveProfileListings(profile.Name)
		report.Summaries = append(report.Summaries, domain.SummarizeWeek(profile.Name, *state, now))
		snapshots = append(snapshots, domain.AggregateProfile(profile.Name, now, active))
		report.Changes = append(report.Changes, domain.WeeklyPriceChanges(active, uc.changeRatio, weekAgo)...)
	}
	report.Market = domain.AggregateMarket(now, snapshots)

	if uc.commentary != nil {
		commentary, err := uc.commentary.MarketCommentary(ctx, report)
		if err != nil {
			ucLogger.Warn("Commentary unavailable, sending the report without it", port.Fields{"error": err.Error()})
		} else {
			report.Commentary = commentary
		}
	}

	rendered, err := uc.renderer.Render(report)
	if err != nil {
		return fmt.Errorf("render weekly report: %w", err)
	}
	if err := uc.sender.Send(ctx, rendered); err != nil {
		return fmt.Errorf("send weekly report: %w", err)
	}

	ucLogger.Info("Weekly report sent", port.Fields{
		"listings":       report.Market.ListingCount,
		"price_changes":  len(report.Changes),
		"has_commentary": report.Commentary != nil,
	})
	return nil
}
