// Package ui provides the styled building blocks of halowdiag's plain
// command output: colors, status symbols, a single-line spinner and static
// tables. Full-screen charts live in the dashboard package.
package ui
