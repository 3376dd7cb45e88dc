package safecopy

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/dbscrub/pkg/config"
	"github.com/codeready-toolchain/dbscrub/pkg/database"
)

// spies records collaborator invocations in call order.
type spies struct {
	calls        []string
	provisionErr error
	copyErr      error
	scrubErr     error
	validateErr  error
	exportErr    error
}

func (s *spies) Provision(context.Context, string) error {
	s.calls = append(s.calls, "provision")
	return s.provisionErr
}

func (s *spies) Copy(context.Context, string, string) error {
	s.calls = append(s.calls, "copy")
	return s.copyErr
}

func (s *spies) Export(context.Context, string, string) error {
	s.calls = append(s.calls, "export")
	return s.exportErr
}

func (s *spies) scrub(context.Context, *database.Client) error {
	s.calls = append(s.calls, "scrub")
	return s.scrubErr
}

func (s *spies) validate(context.Context, *database.Client) error {
	s.calls = append(s.calls, "validate")
	return s.validateErr
}

func (s *spies) deps(writable bool) Deps {
	return Deps{
		Provisioner: s,
		Copier:      s,
		Exporter:    s,
		Scrub:       s.scrub,
		Validate:    s.validate,
		Probe: func(context.Context, string) (bool, error) {
			s.calls = append(s.calls, "probe")
			return writable, nil
		},
	}
}

// sqliteURLs returns two distinct file-backed databases so the workflow's
// target connection phase can really open something.
func sqliteURLs(t *testing.T) (source, target string) {
	t.Helper()
	dir := t.TempDir()
	return "file:" + filepath.Join(dir, "source.db"),
		"file:" + filepath.Join(dir, "target.db")
}

func TestRun_HappyPathOrder(t *testing.T) {
	source, target := sqliteURLs(t)
	s := &spies{}
	w := New(Config{
		SourceURL:  source,
		TargetURL:  target,
		Confirm:    ConfirmYes,
		ExportPath: filepath.Join(t.TempDir(), "out.dump"),
	}, s.deps(false))

	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, []string{"probe", "provision", "copy", "scrub", "validate", "export"}, s.calls)
}

func TestRun_NoExportWithoutPath(t *testing.T) {
	source, target := sqliteURLs(t)
	s := &spies{}
	w := New(Config{SourceURL: source, TargetURL: target, Confirm: ConfirmYes}, s.deps(false))

	require.NoError(t, w.Run(context.Background()))
	assert.NotContains(t, s.calls, "export")
}

func TestRun_SourceEqualsTargetNeverProvisions(t *testing.T) {
	s := &spies{}
	w := New(Config{
		SourceURL: "postgres://app:secret@db:5432/prod",
		TargetURL: "postgres://other:creds@db:5432/prod",
		Confirm:   ConfirmYes,
	}, s.deps(false))

	err := w.Run(context.Background())
	var cerr *config.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, err.Error(), "differ from source")
	assert.Empty(t, s.calls, "no phase may run on a config gate failure")
}

func TestRun_TargetEqualsPrimaryNeverProvisions(t *testing.T) {
	s := &spies{}
	w := New(Config{
		SourceURL:  "postgres://db:5432/prod",
		TargetURL:  "postgres://db:5432/app",
		PrimaryURL: "postgres://app:secret@db:5432/app",
		Confirm:    ConfirmYes,
	}, s.deps(false))

	err := w.Run(context.Background())
	var cerr *config.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, err.Error(), "primary")
	assert.Empty(t, s.calls)
}

func TestRun_MissingTargets(t *testing.T) {
	s := &spies{}
	err := New(Config{TargetURL: "postgres://db/x"}, s.deps(false)).Run(context.Background())
	var cerr *config.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "source_url", cerr.Field)

	err = New(Config{SourceURL: "postgres://db/x"}, s.deps(false)).Run(context.Background())
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "target_url", cerr.Field)
	assert.Empty(t, s.calls)
}

func TestRun_DeclinedConfirmationNeverProvisions(t *testing.T) {
	source, target := sqliteURLs(t)
	s := &spies{}
	w := New(Config{SourceURL: source, TargetURL: target, Confirm: ConfirmNo}, s.deps(false))

	err := w.Run(context.Background())
	var cerr *config.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, err.Error(), "declined")
	assert.NotContains(t, s.calls, "provision")
}

func TestRun_InteractiveConfirmation(t *testing.T) {
	s := &spies{}
	boom := errors.New("stop here")
	s.provisionErr = boom

	w := New(Config{
		SourceURL: "postgres://db:5432/prod",
		TargetURL: "postgres://db:5432/prod_copy",
		Confirm:   ConfirmInteractive,
		Input:     strings.NewReader("prod_copy\n"),
		Output:    &strings.Builder{},
	}, s.deps(false))

	// A matching answer reaches provisioning (which the spy then stops).
	err := w.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, s.calls, "provision")
}

func TestRun_InteractiveMismatchNeverProvisions(t *testing.T) {
	var prompt strings.Builder
	s := &spies{}
	w := New(Config{
		SourceURL: "postgres://db:5432/prod",
		TargetURL: "postgres://db:5432/prod_copy",
		Confirm:   ConfirmInteractive,
		Input:     strings.NewReader("prod\n"),
		Output:    &prompt,
	}, s.deps(false))

	err := w.Run(context.Background())
	var cerr *config.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, err.Error(), "does not match")
	assert.Contains(t, prompt.String(), "prod_copy")
	assert.NotContains(t, s.calls, "provision")
}

func TestRun_WritableSourceEnforced(t *testing.T) {
	source, target := sqliteURLs(t)
	s := &spies{}
	w := New(Config{
		SourceURL:             source,
		TargetURL:             target,
		Confirm:               ConfirmYes,
		EnforceReadOnlySource: true,
	}, s.deps(true))

	err := w.Run(context.Background())
	var werr *SourceWriteAccessError
	require.ErrorAs(t, err, &werr)
	assert.NotContains(t, err.Error(), "secret")
	assert.NotContains(t, s.calls, "provision")
}

func TestRun_WritableSourceAdvisoryContinues(t *testing.T) {
	source, target := sqliteURLs(t)
	s := &spies{}
	w := New(Config{SourceURL: source, TargetURL: target, Confirm: ConfirmYes}, s.deps(true))

	require.NoError(t, w.Run(context.Background()))
	assert.Contains(t, s.calls, "provision")
}

func TestRun_FailedValidationNeverExports(t *testing.T) {
	source, target := sqliteURLs(t)
	s := &spies{validateErr: errors.New("leaks found")}
	w := New(Config{
		SourceURL:  source,
		TargetURL:  target,
		Confirm:    ConfirmYes,
		ExportPath: filepath.Join(t.TempDir(), "out.dump"),
	}, s.deps(false))

	err := w.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation")
	assert.NotContains(t, s.calls, "export")
}

func TestRun_FailedCopyAborts(t *testing.T) {
	source, target := sqliteURLs(t)
	s := &spies{copyErr: errors.New("connection reset")}
	w := New(Config{SourceURL: source, TargetURL: target, Confirm: ConfirmYes}, s.deps(false))

	err := w.Run(context.Background())
	require.Error(t, err)
	assert.NotContains(t, s.calls, "scrub")
}

func TestProbeWrite_SQLite(t *testing.T) {
	url := "file:" + filepath.Join(t.TempDir(), "probe.db")
	writable, err := ProbeWrite(context.Background(), url)
	require.NoError(t, err)
	assert.True(t, writable, "a plain sqlite file accepts writes")
}
