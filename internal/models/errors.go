package models

import "fmt"

// ConfigurationError reports an invalid year, range or request shape.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Msg)
}

func NewConfigurationError(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// FetchError reports a network or storage failure while downloading one
// (year, month, class) file. The caller decides whether to retry or skip.
type FetchError struct {
	Year  int
	Month int
	Class VehicleClass
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s %04d-%02d: %v", e.Class, e.Year, e.Month, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// RequestError reports an ill-formed aggregation request. Fatal to that
// single computation only.
type RequestError struct {
	Msg string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("bad request: %s", e.Msg)
}

func NewRequestError(format string, args ...interface{}) *RequestError {
	return &RequestError{Msg: fmt.Sprintf(format, args...)}
}

// DataMissingError reports a required cache entry that is absent and not
// imputed. The aggregator fails fast rather than computing over partial data.
type DataMissingError struct {
	Year  int
	Month int
	Class VehicleClass
}

func (e *DataMissingError) Error() string {
	return fmt.Sprintf("no cached data for %s %04d-%02d", e.Class, e.Year, e.Month)
}
