// Package harness drives accessibility scenarios end to end.
//
// A scenario launches a target application, binds a capture session to it,
// and then walks its steps. Each step snapshots the console, predicts the
// notifications the host should raise, performs the input, waits for the
// stream to settle, and reconciles the captured stream against the
// prediction. The first failing step ends the run.
//
// # Scenario Format
//
// Scenarios are YAML files, validated against an embedded CUE schema:
//
//	name: launch_and_exit
//	description: "Start a nested shell and leave it again"
//	command: cmd.exe
//	settle:
//	  mode: count
//	  idle: 50ms
//	  timeout: 2s
//	steps:
//	  - text: cmd
//	  - enter: launch
//	    banner:
//	      - "Microsoft Windows [Version 10.0.14974]"
//	      - "(c) 2016 Microsoft Corporation. All rights reserved."
//	  - text: exit
//	  - enter: exit
//	  - scroll: { axis: vertical, ticks: -1 }
//	assertions:
//	  - type: trace_order
//	    kinds: [StartApplication, EndApplication]
//	  - type: final_state
//	    cursor: [16, 9]
//
// # Assertion Types
//
//   - trace_contains: a captured record of the kind, matching any given params
//   - trace_order: kinds appear in the captured trace in the given order
//   - trace_count: a kind appears exactly count times
//   - final_state: cursor and attributes of the console after the last step
//
// # Teardown
//
// Run defers detaching the capture session and terminating the target as
// soon as each is acquired, so both happen on every exit path.
package harness
