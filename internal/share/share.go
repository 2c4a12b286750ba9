// Package share maps join credentials (human 6 character codes and
// opaque deep-link tokens) to programs and builds the join links
// embedded in share messages.  Lookups are gated by the program's
// public access flag: a disabled program resolves to not-found, its
// credentials lying dormant until access is re-enabled.
package share

import (
    "context"
    "errors"
    "fmt"
    "strings"

    "github.com/volunteerapp/program-server/internal/model"
    "github.com/volunteerapp/program-server/internal/repository"
)

// ErrBadCode marks input that cannot normalize into a full join
// code.  Distinguished from a well-formed code that matches nothing
// (sql.ErrNoRows) so handlers can word the two hints differently.
var ErrBadCode = errors.New("invalid join code")

// CodeLength is the fixed length of a join code.
const CodeLength = 6

// NormalizeCode cleans human input into lookup form: non-alphanumeric
// characters are stripped, the rest is uppercased and truncated to
// the code length.  "ab-12 c3" becomes "AB12C3".
func NormalizeCode(raw string) string {
    var b strings.Builder
    for _, r := range strings.ToUpper(raw) {
        if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
            b.WriteRune(r)
            if b.Len() == CodeLength {
                break
            }
        }
    }
    return b.String()
}

// Remaining reports how many characters a partially typed code still
// needs.  Zero means the input normalizes to a complete code.
func Remaining(raw string) int {
    return CodeLength - len(NormalizeCode(raw))
}

// Resolver performs code/token lookups and owns the join-link
// environment switch: development builds hand out HTTP links under
// the configured base URL, production builds a custom URI scheme the
// installed app registers.
type Resolver struct {
    programs *repository.ProgramRepo
    env      string
    baseURL  string
    scheme   string
}

// NewResolver wires a Resolver.
func NewResolver(programs *repository.ProgramRepo, env, baseURL, scheme string) *Resolver {
    return &Resolver{
        programs: programs,
        env:      env,
        baseURL:  strings.TrimRight(baseURL, "/"),
        scheme:   scheme,
    }
}

// ResolveByCode looks a program up by join code.  Input is
// normalized first; an incomplete code, an unknown code and a known
// code whose program has public access disabled all yield
// sql.ErrNoRows, which callers present as a user-correctable
// not-found, never a failure.
func (r *Resolver) ResolveByCode(ctx context.Context, raw string) (*model.Program, error) {
    code := NormalizeCode(raw)
    if len(code) != CodeLength {
        return nil, fmt.Errorf("%w: need %d more characters", ErrBadCode, Remaining(raw))
    }
    return r.programs.ResolveByCode(ctx, code)
}

// ResolveByToken looks a program up by its opaque deep-link token,
// with the same public-access gating as ResolveByCode.
func (r *Resolver) ResolveByToken(ctx context.Context, token string) (*model.Program, error) {
    return r.programs.ResolveByToken(ctx, strings.TrimSpace(token))
}

// Link returns the share bundle for a program after verifying
// ownership.
func (r *Resolver) Link(ctx context.Context, programID, ownerID uint64) (*model.ShareLink, error) {
    p, err := r.programs.GetByIDForOwner(ctx, programID, ownerID)
    if err != nil {
        return nil, err
    }
    return r.link(p), nil
}

// Regenerate rotates the program's join code and returns the updated
// bundle.  The old code stops resolving immediately; the deep-link
// token is unchanged.
func (r *Resolver) Regenerate(ctx context.Context, programID, ownerID uint64) (*model.ShareLink, error) {
    p, err := r.programs.RegenerateShare(ctx, programID, ownerID)
    if err != nil {
        return nil, err
    }
    return r.link(p), nil
}

// SetPublicAccess toggles whether the program's credentials resolve.
func (r *Resolver) SetPublicAccess(ctx context.Context, programID, ownerID uint64, enabled bool) error {
    return r.programs.SetPublicAccess(ctx, programID, ownerID, enabled)
}

func (r *Resolver) link(p *model.Program) *model.ShareLink {
    return &model.ShareLink{
        ProgramID:  p.ID,
        ShareCode:  p.ShareCode,
        ShareToken: p.ShareToken,
        URL:        r.JoinURL(p.ShareToken),
    }
}

// JoinURL builds the deep link for a token.  Production builds use
// the custom URI scheme; everything else gets an HTTP URL under the
// configured base so the link works without the app installed.
func (r *Resolver) JoinURL(token string) string {
    if r.env == "prod" {
        return fmt.Sprintf("%s://program/%s", r.scheme, token)
    }
    return fmt.Sprintf("%s/program/%s", r.baseURL, token)
}

// ShareMessage renders the text an organizer sends out, carrying
// both the typable code and the tappable link.
func (r *Resolver) ShareMessage(link *model.ShareLink, programTitle string) string {
    return fmt.Sprintf("Join the %q program!\n\nCode: %s\nOr use this link: %s\n\nOpen the app and enter the code or tap the link to join.",
        programTitle, link.ShareCode, link.URL)
}
