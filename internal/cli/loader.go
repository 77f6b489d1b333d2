package cli

import (
	"errors"
	"io"

	"github.com/herbtrace/ledger/internal/engine"
	"github.com/herbtrace/ledger/internal/policy"
	"github.com/herbtrace/ledger/internal/record"
	"github.com/herbtrace/ledger/internal/store"
)

// openLedger opens the archive at opts.DB and builds a ledger on top of
// it. Each CLI invocation is its own process; the archive is what makes
// state survive between them. The caller must Close the returned store.
func openLedger(opts *RootOptions) (*engine.Ledger, *store.Store, error) {
	archive, err := store.Open(opts.DB)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "open archive", err)
	}

	engineOpts := []engine.Option{engine.WithArchive(archive)}
	if opts.Policy != "" {
		p, err := policy.LoadFile(opts.Policy)
		if err != nil {
			archive.Close()
			return nil, nil, WrapExitError(ExitCommandError, "load policy", err)
		}
		engineOpts = append(engineOpts, engine.WithPolicy(p))
	}

	ledger, err := engine.New(engineOpts...)
	if err != nil {
		archive.Close()
		return nil, nil, WrapExitError(ExitCommandError, "open ledger", err)
	}
	return ledger, archive, nil
}

// newFormatter builds the output formatter for a command.
func newFormatter(opts *RootOptions, w io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: w, Verbose: opts.Verbose}
}

// reportLedgerError renders a LedgerError through the formatter and
// converts it to an exit-code-1 failure. Non-ledger errors pass through.
func reportLedgerError(f *OutputFormatter, err error) error {
	var le *record.LedgerError
	if !errors.As(err, &le) {
		return err
	}
	if ferr := f.Failure(string(le.Code), le.Message, le.Rule); ferr != nil {
		return ferr
	}
	return NewExitError(ExitFailure, le.Error())
}
