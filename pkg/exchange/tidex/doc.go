// Package tidex implements the Exchange interface for the Tidex spot exchange.
//
// The adapter is split the same way as every venue package:
//
//   - Describe holds the static venue metadata (URLs, capability flags, fees,
//     timeframes, currency remapping and the error tables).
//   - Protocol maps operations onto endpoints and encodes and signs requests.
//   - Normalizer turns decoded upstream JSON into core records.
//   - Classify inspects the response envelope before any parser runs.
//   - TidexExchange glues them to the transport, rate limiter, circuit breaker
//     and key ring.
//
// Tidex only accepts limit orders and has no closed-order history endpoint.
// Order status code "3" is mapped to canceled, although upstream may use it
// for partially filled orders that are still open.
//
// Tidex API Documentation: https://gitlab.com/tidex/api/-/blob/main/tidex_doc.md
package tidex
