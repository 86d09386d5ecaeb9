// Package prof wires a CPU profile into vf2demo's --profile flag.
//
// It is conditionally compiled using the "profile" build tag:
//
//	go build -tags profile
//	go test -tags profile
//
// Built without the tag, StartCPU/StopCPU are no-ops, so the flag stays
// wired unconditionally without runtime/pprof overhead in a normal
// build.
package prof
