// Package script loads and executes engine scripts.
//
// Scripts are WASI command modules executed with wazero. During execution
// a script talks back to the engine through the "vsjet" host module,
// building nodes and publishing them as outputs of the script's execution
// context.
//
// A script runs at most once. Where the script executes is decided by the
// load target: a *policy.Policy creates a fresh context that Dispose will
// clean up, while a *policy.ManagedContext or another *Script shares an
// existing one.
//
//	s, err := script.LoadScript("clip.wasm", script.Options{Core: core, Target: pol})
//	if err != nil {
//	    return err
//	}
//	defer s.Dispose()
//
//	if _, err := s.Run().Wait(); err != nil {
//	    return err
//	}
//	node, err := s.Output(0)
package script
