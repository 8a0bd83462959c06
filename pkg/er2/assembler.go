// assembler.go builds the composite report for one failure event.

package er2

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Payload is the failure itself: either an ErrorList or an Exception.
type Payload interface {
	apply(r *Report) error
}

// ErrorList reports a list of raw error signals.
type ErrorList struct {
	Errors []RawError

	// Filter is the host's applicability policy. Nil reports every error.
	Filter ErrorFilter
}

func (p ErrorList) apply(r *Report) error {
	r.Errors = NormalizeErrors(p.Errors, p.Filter)
	return nil
}

// Exception reports an error value and its cause chain.
type Exception struct {
	Err error
}

func (p Exception) apply(r *Report) error {
	if p.Err == nil {
		return errors.New("exception payload has no error")
	}
	r.Throwable = NormalizeException(p.Err)
	return nil
}

// Assembler gathers every report section. It is read-only after
// construction and safe for concurrent use.
type Assembler struct {
	auth     Authentication
	disable  Toggles
	redactor *Redactor
	resolver EnvironmentResolver
	host     HostLookup
	now      func() time.Time
}

// NewAssembler builds an assembler from cfg. resolver may be nil, in which
// case environment_name and debug_mode are always null. Nil host and now
// default to LookupHost and time.Now.
func NewAssembler(cfg Config, resolver EnvironmentResolver, host HostLookup, now func() time.Time) *Assembler {
	ApplyDefaults(&cfg)
	if host == nil {
		host = LookupHost
	}
	if now == nil {
		now = time.Now
	}
	return &Assembler{
		auth: Authentication{
			Token:           cfg.APIToken,
			ServiceID:       cfg.ServiceID,
			ClientVersion:   ClientVersion,
			ProtocolVersion: ProtocolVersion,
		},
		disable:  cfg.Disable,
		redactor: NewRedactor(cfg.Block),
		resolver: resolver,
		host:     host,
		now:      now,
	}
}

// Build assembles a fresh report. correlationID and snap may be nil.
// An error means the payload itself was unusable.
func (a *Assembler) Build(ctx context.Context, correlationID *string, snap *Snapshot, payload Payload) (*Report, error) {
	if payload == nil {
		return nil, errors.New("report payload is nil")
	}
	if snap == nil {
		snap = &Snapshot{}
	}

	// Each section is computed on its own; none depends on another.
	report := &Report{
		ID:             uuid.NewString(),
		Authentication: a.auth,
		General:        a.general(ctx, correlationID),
		Environment:    a.environment(snap),
		Request:        requestInfo(snap),
		Database:       a.database(snap),
		Cookies:        a.section(a.disable.Cookies, snap.Cookies, a.redactor.Cookies),
		Get:            a.section(a.disable.GetParameters, snap.Query, a.redactor.Get),
		Post:           a.section(a.disable.PostParameters, snap.Form, a.redactor.Post),
		Session:        a.section(a.disable.SessionVariables, snap.Session, a.redactor.Session),
	}

	if err := payload.apply(report); err != nil {
		return nil, errors.Wrap(err, "building report payload")
	}
	return report, nil
}

func (a *Assembler) general(ctx context.Context, correlationID *string) General {
	sessionID := NoSessionID
	if correlationID != nil {
		sessionID = *correlationID
	}

	id := a.host(ctx)
	g := General{
		SessionID:      sessionID,
		Timestamp:      a.now().Format(TimestampLayout),
		HostName:       id.Name,
		HostOS:         id.OS,
		HostOSRelease:  id.OSRelease,
		HostOSVersion:  id.OSVersion,
		RuntimeVersion: runtimeVersion,
		RuntimeMode:    runtimeMode,
		MemoryUsage:    memoryUsage(),
	}

	if env, ok := a.resolveEnvironment(ctx).Get(); ok {
		g.EnvironmentName = Some(env.Name)
		g.DebugMode = Some(env.DebugMode)
	}
	return g
}

// resolveEnvironment never propagates a resolver failure, including a panic.
func (a *Assembler) resolveEnvironment(ctx context.Context) (result Optional[EnvironmentInfo]) {
	if a.resolver == nil {
		return None[EnvironmentInfo]()
	}
	defer func() {
		if recover() != nil {
			result = None[EnvironmentInfo]()
		}
	}()

	env, err := a.resolver.ResolveEnvironment(ctx)
	if err != nil {
		return None[EnvironmentInfo]()
	}
	return Some(env)
}

func (a *Assembler) environment(snap *Snapshot) map[string]string {
	if a.disable.Environment {
		return nil
	}
	env := make(map[string]string, len(snap.Environment))
	for k, v := range snap.Environment {
		env[k] = v
	}
	return env
}

func (a *Assembler) database(snap *Snapshot) map[string][]string {
	if a.disable.DatabaseQueries {
		return nil
	}
	db := make(map[string][]string)
	if snap.Queries == nil {
		return db
	}
	for conn, queries := range snap.Queries.ExecutedQueries() {
		db[conn] = append(make([]string, 0, len(queries)), queries...)
	}
	return db
}

func (a *Assembler) section(disabled bool, src map[string]any, redact func(map[string]any) map[string]string) map[string]string {
	if disabled {
		return nil
	}
	return redact(src)
}

func requestInfo(snap *Snapshot) RequestInfo {
	if snap.Request == nil {
		return CLIRequest()
	}
	return *snap.Request
}
