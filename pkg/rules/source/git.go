package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"guardline-hq/bastion/pkg/config"
)

// GitSource loads rulesets from a Git repository. The repository is cloned
// to a local path on first load; Refresh pulls and reports whether the
// tracked branch moved. A Poll loop can drive periodic refreshes.
type GitSource struct {
	cfg       config.GitRulesConfig
	localPath string
	files     *FileSource
	logger    *slog.Logger

	mu   sync.Mutex
	repo *gogit.Repository
}

// NewGitSource creates a Git-backed ruleset source. validator and strict
// are forwarded to the underlying file loader.
func NewGitSource(cfg config.GitRulesConfig, defaults Defaults, validator *Validator, strict bool) (*GitSource, error) {
	if cfg.Repository == "" {
		return nil, fmt.Errorf("git ruleset source requires a repository URL")
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}

	localPath := cfg.LocalPath
	if localPath == "" {
		localPath = filepath.Join(os.TempDir(), "bastion-rulesets")
	}

	rulesetPath := filepath.Join(localPath, cfg.Path)

	return &GitSource{
		cfg:       cfg,
		localPath: localPath,
		files:     NewFileSource(rulesetPath, defaults, validator, strict),
		logger:    slog.Default().With("component", "rules.source.git"),
	}, nil
}

// Load clones the repository if needed, then reads the ruleset files from
// the configured subpath.
func (g *GitSource) Load(ctx context.Context) (*Ruleset, error) {
	if err := g.ensureCloned(ctx); err != nil {
		return nil, err
	}

	rs, err := g.files.Load(ctx)
	if err != nil {
		return nil, err
	}

	if sha, err := g.headSHA(); err == nil {
		rs.Origin = fmt.Sprintf("git:%s@%s", g.cfg.Repository, shortSHA(sha))
	} else {
		rs.Origin = fmt.Sprintf("git:%s", g.cfg.Repository)
	}
	return rs, nil
}

// String describes the source.
func (g *GitSource) String() string {
	return fmt.Sprintf("git:%s#%s/%s", g.cfg.Repository, g.cfg.Branch, g.cfg.Path)
}

// Refresh pulls the tracked branch and reports whether HEAD moved.
func (g *GitSource) Refresh(ctx context.Context) (changed bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.repo == nil {
		return false, fmt.Errorf("repository not initialized")
	}

	before, err := g.repo.Head()
	if err != nil {
		return false, fmt.Errorf("failed to read HEAD: %w", err)
	}

	worktree, err := g.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree: %w", err)
	}

	auth, err := g.auth()
	if err != nil {
		return false, err
	}

	pullCtx, cancel := context.WithTimeout(ctx, g.timeout())
	defer cancel()

	err = worktree.PullContext(pullCtx, &gogit.PullOptions{
		RemoteName: "origin",
		Auth:       auth,
	})
	if err != nil && err != gogit.NoErrAlreadyUpToDate {
		return false, fmt.Errorf("failed to pull: %w", err)
	}

	after, err := g.repo.Head()
	if err != nil {
		return false, fmt.Errorf("failed to read HEAD after pull: %w", err)
	}

	return before.Hash() != after.Hash(), nil
}

// Poll refreshes the repository on the configured interval and calls
// onChange after every pull that moved HEAD. Blocks until ctx is done.
func (g *GitSource) Poll(ctx context.Context, onChange func(context.Context)) {
	interval := g.cfg.PollInterval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	g.logger.Info("git poll loop started",
		"repository", g.cfg.Repository,
		"branch", g.cfg.Branch,
		"interval", interval,
	)

	for {
		select {
		case <-ctx.Done():
			g.logger.Info("git poll loop stopped")
			return
		case <-ticker.C:
			changed, err := g.Refresh(ctx)
			if err != nil {
				g.logger.Error("git refresh failed", "error", err)
				continue
			}
			if changed {
				g.logger.Info("ruleset repository changed, reloading")
				onChange(ctx)
			}
		}
	}
}

func (g *GitSource) ensureCloned(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.repo != nil {
		return nil
	}

	// Reuse an existing checkout when present.
	if _, err := os.Stat(filepath.Join(g.localPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(g.localPath)
		if err != nil {
			return fmt.Errorf("failed to open existing checkout: %w", err)
		}
		g.repo = repo
		return nil
	}

	if err := os.MkdirAll(g.localPath, 0o755); err != nil {
		return fmt.Errorf("failed to create clone directory: %w", err)
	}

	auth, err := g.auth()
	if err != nil {
		return err
	}

	cloneCtx, cancel := context.WithTimeout(ctx, g.timeout())
	defer cancel()

	g.logger.Info("cloning ruleset repository",
		"repository", g.cfg.Repository,
		"branch", g.cfg.Branch,
		"local_path", g.localPath,
	)

	repo, err := gogit.PlainCloneContext(cloneCtx, g.localPath, false, &gogit.CloneOptions{
		URL:           g.cfg.Repository,
		ReferenceName: plumbing.NewBranchReferenceName(g.cfg.Branch),
		SingleBranch:  true,
		Auth:          auth,
	})
	if err != nil {
		return fmt.Errorf("failed to clone %q: %w", g.cfg.Repository, err)
	}

	g.repo = repo
	return nil
}

func (g *GitSource) headSHA() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.repo == nil {
		return "", fmt.Errorf("repository not initialized")
	}
	ref, err := g.repo.Head()
	if err != nil {
		return "", err
	}
	return ref.Hash().String(), nil
}

func (g *GitSource) auth() (transport.AuthMethod, error) {
	switch g.cfg.Auth.Method {
	case "", "none":
		return nil, nil

	case "token":
		if g.cfg.Auth.Token == "" {
			return nil, fmt.Errorf("token auth requires a non-empty token")
		}
		username := g.cfg.Auth.Username
		if username == "" {
			username = "git"
		}
		return &githttp.BasicAuth{Username: username, Password: g.cfg.Auth.Token}, nil

	case "ssh":
		if g.cfg.Auth.SSHKeyPath == "" {
			return nil, fmt.Errorf("ssh auth requires ssh_key_path")
		}
		auth, err := gitssh.NewPublicKeysFromFile("git", g.cfg.Auth.SSHKeyPath, "")
		if err != nil {
			return nil, fmt.Errorf("failed to load SSH key: %w", err)
		}
		return auth, nil

	default:
		return nil, fmt.Errorf("unknown git auth method %q", g.cfg.Auth.Method)
	}
}

func (g *GitSource) timeout() time.Duration {
	if g.cfg.Timeout > 0 {
		return g.cfg.Timeout
	}
	return 30 * time.Second
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
