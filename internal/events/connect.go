package events

// ConnectSequence builds the function run once a socket is admitted past
// the migration gate: the seven ordered startup events followed by the
// two streaming batch channels. Each field is supplied by app at wiring
// time so this package stays independent of store/alert/config.
type ConnectSequence struct {
	FeaturesEnabled func() map[string]bool
	Terms           func() []string
	Labels          func() map[string]string
	Database        func() map[string]any
	Signal          func() map[string]any
	AlertTerms      func() []string
	Version         string

	// RecentMessages and RecentAlertMatches stream their batches in
	// chunks; each call to the yield function must carry
	// {messages|matches, loading, done_loading} and the final call must
	// set done_loading true.
	RecentMessages     func(yield func(batch any, loading bool, done bool))
	RecentAlertMatches func(yield func(batch any, loading bool, done bool))
}

// Run executes the connect sequence on s in the declared order:
// features_enabled, terms, labels, database, signal, alert_terms,
// acarshub_version, then the two batch streams.
func (cs ConnectSequence) Run(s *Socket) {
	if cs.FeaturesEnabled != nil {
		s.Emit("features_enabled", cs.FeaturesEnabled())
	}
	if cs.Terms != nil {
		s.Emit("terms", cs.Terms())
	}
	if cs.Labels != nil {
		s.Emit("labels", cs.Labels())
	}
	if cs.Database != nil {
		s.Emit("database", cs.Database())
	}
	if cs.Signal != nil {
		s.Emit("signal", cs.Signal())
	}
	if cs.AlertTerms != nil {
		s.Emit("alert_terms", cs.AlertTerms())
	}
	s.Emit("acarshub_version", map[string]any{"version": cs.Version})

	if cs.RecentMessages != nil {
		cs.RecentMessages(func(batch any, loading bool, done bool) {
			s.Emit("acars_msg_batch", map[string]any{"messages": batch, "loading": loading, "done_loading": done})
		})
	}
	if cs.RecentAlertMatches != nil {
		cs.RecentAlertMatches(func(batch any, loading bool, done bool) {
			s.Emit("alert_matches_batch", map[string]any{"matches": batch, "loading": loading, "done_loading": done})
		})
	}
}
