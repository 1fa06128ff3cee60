package events

import "encoding/json"

// SearchQuery is the client->server query_search payload.
type SearchQuery struct {
	Flight    string `json:"flight,omitempty"`
	Tail      string `json:"tail,omitempty"`
	ICAO      string `json:"icao,omitempty"`
	StationID string `json:"station_id,omitempty"`
	MsgText   string `json:"msg_text,omitempty"`
	Label     string `json:"label,omitempty"`
	Freq      string `json:"freq,omitempty"`
	Msgno     string `json:"msgno,omitempty"`
	MsgType   string `json:"msg_type,omitempty"`
	Depa      string `json:"depa,omitempty"`
	Dsta      string `json:"dsta,omitempty"`
}

type querySearchPayload struct {
	SearchTerm   SearchQuery `json:"search_term"`
	ResultsAfter int         `json:"results_after,omitempty"`
	ShowAll      bool        `json:"show_all,omitempty"`
}

type updateAlertsPayload struct {
	Terms  []string `json:"terms"`
	Ignore []string `json:"ignore"`
}

type alertTermQueryPayload struct {
	ICAO   string `json:"icao,omitempty"`
	Flight string `json:"flight,omitempty"`
	Tail   string `json:"tail,omitempty"`
}

type queryAlertsByTermPayload struct {
	Term string `json:"term"`
	Page int    `json:"page"`
}

type rrdTimePeriodPayload struct {
	TimePeriod string `json:"time_period"`
}

// HandlerDeps bundles the callbacks Register wires each client->server
// event to; app supplies the concrete implementations backed by
// store/alert/timeseries.
type HandlerDeps struct {
	Search             func(q SearchQuery, resultsAfter int, showAll bool) (results any, numResults int)
	UpdateAlerts       func(terms, ignore []string) error
	SignalFreqs        func() any
	SignalCount        func() any
	SignalGraphs       func() any
	RequestStatus      func() any
	AlertTermQuery     func(icao, flight, tail string) any
	QueryAlertsByTerm  func(term string, page int) (results any, totalCount int)
	RequestRecentAlerts func() any
	RRDTimeseries      func(period string) (data any, err error)
	RegenerateMatches  func(progress func(scanned int, done bool)) error
}

// Register wires every client->server event named in the wire protocol to
// its handler, gating the two mutating operations (update_alerts,
// regenerate_alert_matches) behind RequireRemoteUpdates.
func Register(srv *Server, deps HandlerDeps) {
	srv.On("query_search", func(s *Socket, data json.RawMessage) {
		var p querySearchPayload
		if err := json.Unmarshal(data, &p); err != nil {
			s.Emit("query_search_error", map[string]any{"message": "malformed query_search payload"})
			return
		}
		if deps.Search == nil {
			return
		}
		results, n := deps.Search(p.SearchTerm, p.ResultsAfter, p.ShowAll)
		s.Emit("query_search_results", map[string]any{"results": results, "num_results": n})
	})

	srv.On("update_alerts", func(s *Socket, data json.RawMessage) {
		if !srv.RequireRemoteUpdates(s) {
			return
		}
		var p updateAlertsPayload
		if err := json.Unmarshal(data, &p); err != nil {
			s.Emit("update_alerts_error", map[string]any{"message": "malformed update_alerts payload"})
			return
		}
		if deps.UpdateAlerts == nil {
			return
		}
		if err := deps.UpdateAlerts(p.Terms, p.Ignore); err != nil {
			s.Emit("update_alerts_error", map[string]any{"message": err.Error()})
			return
		}
		srv.Broadcast("terms", p.Terms)
	})

	srv.On("signal_freqs", func(s *Socket, data json.RawMessage) {
		if deps.SignalFreqs != nil {
			s.Emit("signal_freqs", deps.SignalFreqs())
		}
	})

	srv.On("signal_count", func(s *Socket, data json.RawMessage) {
		if deps.SignalCount != nil {
			s.Emit("signal_count", deps.SignalCount())
		}
	})

	srv.On("signal_graphs", func(s *Socket, data json.RawMessage) {
		// Targeted per the resolved design decision: broadcasting this to
		// every socket was considered and rejected.
		if deps.SignalGraphs != nil {
			s.Emit("signal_graphs", deps.SignalGraphs())
		}
	})

	srv.On("request_status", func(s *Socket, data json.RawMessage) {
		if deps.RequestStatus != nil {
			s.Emit("system_status", deps.RequestStatus())
		}
	})

	srv.On("alert_term_query", func(s *Socket, data json.RawMessage) {
		var p alertTermQueryPayload
		if err := json.Unmarshal(data, &p); err != nil {
			s.Emit("alert_term_query_error", map[string]any{"message": "malformed alert_term_query payload"})
			return
		}
		if deps.AlertTermQuery != nil {
			s.Emit("alert_term_query_results", deps.AlertTermQuery(p.ICAO, p.Flight, p.Tail))
		}
	})

	srv.On("query_alerts_by_term", func(s *Socket, data json.RawMessage) {
		var p queryAlertsByTermPayload
		if err := json.Unmarshal(data, &p); err != nil {
			s.Emit("query_alerts_by_term_error", map[string]any{"message": "malformed query_alerts_by_term payload"})
			return
		}
		if deps.QueryAlertsByTerm == nil {
			return
		}
		results, total := deps.QueryAlertsByTerm(p.Term, p.Page)
		s.Emit("query_alerts_by_term_results", map[string]any{"results": results, "total_count": total})
	})

	srv.On("request_recent_alerts", func(s *Socket, data json.RawMessage) {
		if deps.RequestRecentAlerts != nil {
			s.Emit("recent_alerts", deps.RequestRecentAlerts())
		}
	})

	srv.On("rrd_timeseries", func(s *Socket, data json.RawMessage) {
		var p rrdTimePeriodPayload
		if err := json.Unmarshal(data, &p); err != nil {
			s.Emit("rrd_timeseries_error", map[string]any{"message": "malformed rrd_timeseries payload"})
			return
		}
		if deps.RRDTimeseries == nil {
			return
		}
		result, err := deps.RRDTimeseries(p.TimePeriod)
		if err != nil {
			s.Emit("rrd_timeseries_error", map[string]any{"message": err.Error()})
			return
		}
		s.Emit("rrd_timeseries_data", result)
	})

	srv.On("regenerate_alert_matches", func(s *Socket, data json.RawMessage) {
		if !srv.RequireRemoteUpdates(s) {
			return
		}
		if deps.RegenerateMatches == nil {
			return
		}
		err := deps.RegenerateMatches(func(scanned int, done bool) {
			srv.Broadcast("regenerate_alert_matches_progress", map[string]any{"scanned": scanned, "done": done})
		})
		if err != nil {
			s.Emit("regenerate_alert_matches_error", map[string]any{"message": err.Error()})
		}
	})
}
