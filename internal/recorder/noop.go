package recorder

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordTick(_ *TickRecord) error           { return nil }
func (n *NoopRecorder) RecordFundEvent(_ *FundEvent) error       { return nil }
func (n *NoopRecorder) RecordMilestone(_ *MilestoneRecord) error { return nil }
func (n *NoopRecorder) Close() error                             { return nil }
