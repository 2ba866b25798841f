// Package lineage derives job lineage from scheduler condition records.
//
// A scheduler export describes jobs and the conditions they add (outputs) and
// wait for (inputs). A condition added by one job and awaited by another links
// the two, producer first. This package turns the flat records into a
// [dag.Graph] and answers lineage questions against it.
//
// Only same-cycle conditions take part: an output counts when its sign is
// [SignProduced] and its date is [CurrentRunDate]; an input counts when its
// date is [CurrentRunDate]. Everything else refers to other cycles and is
// ignored.
//
// # Pipeline
//
//	jobs, edges, err := lineage.Parse(records)
//	g := lineage.BuildGraph(jobs, edges)
//	sub := lineage.Lineage(g, []string{"PAY_LOAD"}, lineage.Unbounded)
//	levels := lineage.Levels(sub)
//
// Every call builds fresh values; nothing is cached or shared between calls.
// [Snapshot] bundles the pipeline for callers that load once and query many
// times.
package lineage
