// Package diag turns the textual output of ping and iperf3 into samples and
// rolling statistics.
//
// Everything here is pure: parsers consume one line or one command result at
// a time and never fail on unknown text. Unrecognised output is surfaced as a
// raw sample so callers can show it verbatim.
package diag
