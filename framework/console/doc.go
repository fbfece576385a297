// Package console implements musket, the framework's command runner.
//
// Service providers contribute *Command values; the runner wraps each in a
// cobra command and adds the global flags every command understands:
//
//	--quiet, -q            only warnings and errors
//	--silent               no output at all
//	--no-interaction, -n   Confirm returns its default
//	--verbose[=0-3], -v    show Debug / Verbose lines; -vv and -vvv stack
//
// Run returns 0 on success and 1 when a command reports an error.
package console
