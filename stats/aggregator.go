// Package stats computes dashboard rollups over the stored inspection history.
//
// Every query reads the history fresh and is a pure function of the stored
// documents, the registered systems and the clock. Documents whose date
// cannot be read are left out of date-windowed figures.
package stats

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"uptime-inspector/history"
	"uptime-inspector/model"
)

const (
	// DateTimeLayout renders latest-inspection times on the dashboard.
	DateTimeLayout = "2006-01-02 15시 04분 05초"
	// SummaryWindow is how many recent sweeps are searched for a system's
	// latest result in the summary.
	SummaryWindow = 30
)

type HistorySource interface {
	All(ctx context.Context) ([]history.Entry, error)
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

type SystemLister interface {
	ListSystems(ctx context.Context) ([]model.System, error)
}

type Aggregator struct {
	history HistorySource
	systems SystemLister
	loc     *time.Location
	now     func() time.Time
	logger  *zap.Logger
}

type Option func(*Aggregator)

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLocation sets the zone used for calendar windows. Default time.Local.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.loc = loc
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

func New(h HistorySource, systems SystemLister, opts ...Option) *Aggregator {
	a := &Aggregator{history: h, systems: systems, loc: time.Local, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// dated is a history entry with its normalized date.
type dated struct {
	at    time.Time
	entry history.Entry
}

// snapshot is one read of the history and registry.
type snapshot struct {
	systems []model.System
	entries []history.Entry
	// docs holds the entries with a readable date, oldest first.
	docs []dated
	now  time.Time
}

func (a *Aggregator) load(ctx context.Context, withSystems bool) (snapshot, error) {
	var snap snapshot
	if withSystems {
		systems, err := a.systems.ListSystems(ctx)
		if err != nil {
			return snapshot{}, fmt.Errorf("list systems: %w", err)
		}
		snap.systems = systems
	}
	entries, err := a.history.All(ctx)
	if err != nil {
		return snapshot{}, err
	}
	snap.entries = entries
	snap.docs = a.date(entries)
	snap.now = a.wallNow()
	return snap, nil
}

func (a *Aggregator) date(entries []history.Entry) []dated {
	out := make([]dated, 0, len(entries))
	for _, e := range entries {
		at, err := e.Time(a.loc)
		if err != nil {
			a.logger.Debug("history document without readable date", zap.String("doc_id", e.DocID), zap.Error(err))
			continue
		}
		out = append(out, dated{at: at, entry: e})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].at.Before(out[j].at) })
	return out
}

func (a *Aggregator) wallNow() time.Time {
	n := a.now().In(a.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), n.Hour(), n.Minute(), n.Second(), n.Nanosecond(), a.loc)
}

// ===== Queries =====

// LatestPerSystem returns, for every registered system, the outcome of its
// newest record. Records of unregistered systems are ignored.
func (a *Aggregator) LatestPerSystem(ctx context.Context) (map[string]SystemLatest, error) {
	snap, err := a.load(ctx, true)
	if err != nil {
		return nil, err
	}
	return latestPerSystem(snap.systems, snap.docs), nil
}

func (a *Aggregator) TodayStats(ctx context.Context) (TodayStats, error) {
	snap, err := a.load(ctx, false)
	if err != nil {
		return TodayStats{}, err
	}
	return todayStats(snap.docs, snap.now), nil
}

func (a *Aggregator) MonthStats(ctx context.Context) (MonthStats, error) {
	snap, err := a.load(ctx, false)
	if err != nil {
		return MonthStats{}, err
	}
	return monthStats(snap.docs, snap.now), nil
}

func (a *Aggregator) WeeklySeries(ctx context.Context) (WeeklyStats, error) {
	snap, err := a.load(ctx, false)
	if err != nil {
		return WeeklyStats{}, err
	}
	return weeklySeries(snap.docs, snap.now), nil
}

func (a *Aggregator) YearlySeries(ctx context.Context) (YearlyStats, error) {
	snap, err := a.load(ctx, false)
	if err != nil {
		return YearlyStats{}, err
	}
	return yearlySeries(snap.docs, snap.now), nil
}

// SystemStatistics counts every record of the system across all history.
func (a *Aggregator) SystemStatistics(ctx context.Context, systemID string) (SystemStatistics, error) {
	entries, err := a.history.All(ctx)
	if err != nil {
		return SystemStatistics{}, err
	}
	return systemStatistics(entries, systemID), nil
}

// Dashboard computes every dashboard figure from a single read.
func (a *Aggregator) Dashboard(ctx context.Context) (Dashboard, error) {
	snap, err := a.load(ctx, true)
	if err != nil {
		return Dashboard{}, err
	}
	today := todayStats(snap.docs, snap.now)
	d := Dashboard{
		TodayInspectionCount:    today.Count,
		TodaySuccessSystemCount: today.SuccessSystems,
		TodayErrorSystemCount:   today.ErrorSystems,
		MonthInspectionCount:    monthStats(snap.docs, snap.now).Count,
		SystemStats:             systemStats(snap.systems, latestPerSystem(snap.systems, snap.docs)),
		WeeklyInspectionStats:   weeklySeries(snap.docs, snap.now),
		YearlyInspectionStats:   yearlySeries(snap.docs, snap.now),
	}
	a.logger.Debug("dashboard computed",
		zap.Int("documents", len(snap.entries)),
		zap.Int("dated", len(snap.docs)),
		zap.Int("today", d.TodayInspectionCount),
	)
	return d, nil
}

// Summary reports, per registered system, its latest result among the most
// recent sweeps together with its overall statistics.
func (a *Aggregator) Summary(ctx context.Context) (Summary, error) {
	systems, err := a.systems.ListSystems(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list systems: %w", err)
	}
	recent, err := a.history.Recent(ctx, SummaryWindow)
	if err != nil {
		return Summary{}, err
	}
	all, err := a.history.All(ctx)
	if err != nil {
		return Summary{}, err
	}

	out := Summary{Systems: make([]SystemSummary, 0, len(systems))}
	for _, sys := range systems {
		out.Systems = append(out.Systems, SystemSummary{
			SystemID:     sys.ID,
			SystemName:   sys.DisplayName(),
			LatestResult: latestResult(recent, sys.ID),
			Statistics:   systemStatistics(all, sys.ID),
		})
	}
	return out, nil
}

// ===== Rollups =====

func latestPerSystem(systems []model.System, docs []dated) map[string]SystemLatest {
	out := make(map[string]SystemLatest, len(systems))
	for _, s := range systems {
		out[s.ID] = SystemLatest{SystemID: s.ID, Name: s.DisplayName()}
	}

	latestAt := map[string]time.Time{}
	latest := map[string]model.InspectionRecord{}
	for _, d := range docs {
		for _, rec := range d.entry.Sweep.Systems {
			if rec.SystemID == "" {
				continue
			}
			if _, ok := out[rec.SystemID]; !ok {
				continue
			}
			// ties go to the record seen last
			if prev, ok := latestAt[rec.SystemID]; ok && d.at.Before(prev) {
				continue
			}
			latestAt[rec.SystemID] = d.at
			latest[rec.SystemID] = rec
		}
	}

	for id, rec := range latest {
		sl := out[id]
		sl.LastInspectedAt = latestAt[id].Format(DateTimeLayout)
		if rec.ResultsMissing {
			sl.SuccessCount, sl.ErrorCount = 0, 1
		} else {
			sl.SuccessCount, sl.ErrorCount = rec.Counts()
		}
		ok := sl.ErrorCount == 0
		sl.Status = &ok
		out[id] = sl
	}
	return out
}

// todayStats counts today's documents and classifies each system seen today.
// Once a system is marked in error it stays so for the day; a later healthy
// record does not clear it.
func todayStats(docs []dated, now time.Time) TodayStats {
	var st TodayStats
	status := map[string]bool{}
	for _, d := range docs {
		if !sameDay(d.at, now) {
			continue
		}
		st.Count++
		for _, rec := range d.entry.Sweep.Systems {
			if rec.SystemID == "" {
				continue
			}
			if healthy, seen := status[rec.SystemID]; seen && !healthy {
				continue
			}
			status[rec.SystemID] = !rec.HasError()
		}
	}
	for _, healthy := range status {
		if healthy {
			st.SuccessSystems++
		} else {
			st.ErrorSystems++
		}
	}
	return st
}

func monthStats(docs []dated, now time.Time) MonthStats {
	var st MonthStats
	for _, d := range docs {
		if d.at.Year() == now.Year() && d.at.Month() == now.Month() {
			st.Count++
		}
	}
	return st
}

// weeklySeries buckets this week's documents by weekday. The week runs from
// Sunday 00:00:00 to Saturday 23:59:59, both ends included. Totals count
// documents; success and error count the records inside them.
func weeklySeries(docs []dated, now time.Time) WeeklyStats {
	start, end := weekBounds(now)
	st := WeeklyStats{
		Labels:      append([]string(nil), weekdayLabels...),
		SuccessData: make([]int, 7),
		ErrorData:   make([]int, 7),
		TotalData:   make([]int, 7),
	}
	for _, d := range docs {
		if d.at.Before(start) || d.at.After(end) {
			continue
		}
		day := int(d.at.Weekday())
		st.TotalData[day]++
		for _, rec := range d.entry.Sweep.Systems {
			if rec.HasError() {
				st.ErrorData[day]++
			} else {
				st.SuccessData[day]++
			}
		}
	}
	return st
}

// yearlySeries counts inspections per month of the current year: every record
// of a multi-system sweep, one per flat document.
func yearlySeries(docs []dated, now time.Time) YearlyStats {
	st := YearlyStats{
		Year:   now.Year(),
		Labels: append([]string(nil), monthLabels...),
		Data:   make([]int, 12),
	}
	for _, d := range docs {
		if d.at.Year() != now.Year() {
			continue
		}
		n := len(d.entry.Sweep.Systems)
		if d.entry.Sweep.Legacy {
			n = 1
		}
		st.Data[d.at.Month()-1] += n
	}
	return st
}

func systemStats(systems []model.System, latest map[string]SystemLatest) SystemStats {
	st := SystemStats{
		Labels:         make([]string, 0, len(systems)),
		SuccessData:    make([]int, 0, len(systems)),
		ErrorData:      make([]int, 0, len(systems)),
		LatestDatetime: make([]string, 0, len(systems)),
	}
	for _, s := range systems {
		l := latest[s.ID]
		st.Labels = append(st.Labels, s.DisplayName())
		st.SuccessData = append(st.SuccessData, l.SuccessCount)
		st.ErrorData = append(st.ErrorData, l.ErrorCount)
		st.LatestDatetime = append(st.LatestDatetime, l.LastInspectedAt)
	}
	return st
}

func systemStatistics(entries []history.Entry, systemID string) SystemStatistics {
	var st SystemStatistics
	for _, e := range entries {
		for _, rec := range e.Sweep.Systems {
			if rec.SystemID != systemID {
				continue
			}
			st.TotalInspections++
			if rec.HasError() {
				st.ErrorCount++
			}
		}
	}
	st.SuccessCount = st.TotalInspections - st.ErrorCount
	st.SuccessRate = successRate(st.SuccessCount, st.TotalInspections)
	return st
}

// successRate is success/total as a percentage with one decimal, 0 when
// total is 0. The float quotient is rounded from its exact binary value, so
// 23/80 gives 28.7 and 1/16 gives 6.2.
func successRate(success, total int) float64 {
	if total == 0 {
		return 0
	}
	pct := float64(success) / float64(total) * 100
	r, err := strconv.ParseFloat(strconv.FormatFloat(pct, 'f', 1, 64), 64)
	if err != nil {
		return pct
	}
	return r
}

// latestResult finds the first record of the system in entries, which are
// expected newest first.
func latestResult(entries []history.Entry, systemID string) *LatestResult {
	for _, e := range entries {
		for _, rec := range e.Sweep.Systems {
			if rec.SystemID == systemID {
				return &LatestResult{InspectionDate: rec.InspectedAt(), HasError: rec.HasError()}
			}
		}
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func weekBounds(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	start := time.Date(y, m, d-int(now.Weekday()), 0, 0, 0, 0, now.Location())
	sat := start.AddDate(0, 0, 6)
	end := time.Date(sat.Year(), sat.Month(), sat.Day(), 23, 59, 59, 0, now.Location())
	return start, end
}
