// Package report writes migration and analysis reports to durable storage
// and renders them as text for operators.
package report
