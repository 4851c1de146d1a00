// Package botsight records conversational bot activity as named telemetry
// events and fans every event out to one or more telemetry destinations.
//
// Quick start:
//
//	c, err := botsight.New(
//	    botsight.WithDestinations("00000000-0000-0000-0000-000000000000", "stdout:"),
//	    botsight.WithSentiment(os.Getenv("TEXT_ANALYTICS_API_KEY"), "3", ""),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	_ = c.TrackActivity(ctx, &activity, nil)
//
// A destination key is either a bare Application Insights instrumentation
// key or "scheme:target" for one of the registered sinks (kafka, otel,
// webhook, file, stdout). Prefix a key with "async+" to buffer writes.
//
// Tracking calls never fail because a destination is down; delivery errors
// are logged. The Client is safe for concurrent use.
package botsight
