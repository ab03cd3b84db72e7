// Package services defines the error classification and context
// annotation shared by the pipeline core and its external collaborators.
package services
