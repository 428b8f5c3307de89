// Package workflow holds the workflow definition model, its validation rules
// and the registry that stores named definitions independently of execution.
// Definitions live in a pluggable Store: in-process memory by default, or a
// Redis hash when definitions need to survive restarts.
package workflow
