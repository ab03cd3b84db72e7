// Package pipeline defines the fixed pipeline kinds, their stage
// topologies, and the outcome vocabulary shared by the orchestrator and
// its callers. Topologies are static data; kind selection happens once
// at run creation and is immutable for that run.
package pipeline
