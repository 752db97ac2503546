// Package orchestrator drives a multi-persona discussion.
//
// Start validates the request and seeds the transcript. The returned
// Discussion runs lazily while its Events sequence is consumed: each round
// invokes the active personas one after another, appends every answer as
// soon as it arrives so later speakers see it, then asks the termination
// detector whether to stop. Every discussion ends with exactly one of
// discussion-completed, discussion-cancelled or discussion-failed.
//
// Example:
//
//	orch := orchestrator.New(gateway, orchestrator.WithLogger(logger))
//	d, err := orch.Start(ctx, "Is free will an illusion?", personas, orchestrator.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	for ev := range d.Events() {
//		fmt.Println(ev.Type)
//	}
package orchestrator
