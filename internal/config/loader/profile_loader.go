// Package loader carrega perfis de credor (caps de desconto, canais de
// escalonamento, palavras-chave) de um YAML com hot reload via fsnotify.
package loader

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"reclamai/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// CreditorProfile defines negotiation parameters for one creditor category.
type CreditorProfile struct {
	Name                string   `mapstructure:"-"`
	CreditorTypes       []string `mapstructure:"creditor_types"`
	MaxMarkdownPct      float64  `mapstructure:"max_markdown_pct"`
	RateReductionFactor float64  `mapstructure:"rate_reduction_factor"`
	EscalationChannels  []string `mapstructure:"escalation_channels"`
	Keywords            []string `mapstructure:"keywords"`
	Default             bool     `mapstructure:"default"`

	typesLower []string
}

// Matches reports whether the profile covers the given creditor type.
func (p CreditorProfile) Matches(creditorType string) bool {
	ct := strings.ToLower(strings.TrimSpace(creditorType))
	for _, t := range p.typesLower {
		if t == ct {
			return true
		}
	}
	return false
}

// Snapshot is the full profile set at one point in time.
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Profiles []CreditorProfile
}

// ChangeListener fires after a successful reload.
type ChangeListener func(Snapshot)

// Manager loads the profile file and watches it for updates.
type Manager struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

// NewManager reads the profile file and starts watching it for changes.
func NewManager(path string) (*Manager, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("creditor profile manager requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read creditor profiles failed: %w", err)
	}
	m := &Manager{path: path, v: v}
	if err := m.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := m.reload(); err != nil {
			logger.Errorf("creditor profile reload failed: %v", err)
			return
		}
		m.notifyListeners()
	})
	v.WatchConfig()
	return m, nil
}

// Snapshot returns a copy of the current profile set.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.snapshot
	out.Profiles = append([]CreditorProfile(nil), m.snapshot.Profiles...)
	return out
}

// ProfileFor resolves the profile matching creditorType, falling back to the
// default profile when nothing matches.
func (m *Manager) ProfileFor(creditorType string) (CreditorProfile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var def *CreditorProfile
	for i := range m.snapshot.Profiles {
		p := &m.snapshot.Profiles[i]
		if p.Matches(creditorType) {
			return *p, true
		}
		if p.Default && def == nil {
			def = p
		}
	}
	if def != nil {
		return *def, true
	}
	if len(m.snapshot.Profiles) > 0 {
		return m.snapshot.Profiles[0], true
	}
	return CreditorProfile{}, false
}

// OnChange registers a reload listener.
func (m *Manager) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

func (m *Manager) notifyListeners() {
	snap := m.Snapshot()
	m.mu.RLock()
	listeners := append([]ChangeListener(nil), m.listeners...)
	m.mu.RUnlock()
	for _, fn := range listeners {
		fn(snap)
	}
}

func (m *Manager) reload() error {
	if err := m.v.ReadInConfig(); err != nil {
		return fmt.Errorf("re-read creditor profiles failed: %w", err)
	}
	raw := map[string]CreditorProfile{}
	if err := m.v.UnmarshalKey("creditor_profiles", &raw); err != nil {
		return fmt.Errorf("parse creditor_profiles failed: %w", err)
	}
	if len(raw) == 0 {
		return fmt.Errorf("creditor_profiles is empty (%s)", m.path)
	}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	profiles := make([]CreditorProfile, 0, len(raw))
	for _, name := range names {
		p := raw[name]
		p.Name = name
		p.typesLower = make([]string, 0, len(p.CreditorTypes))
		for _, t := range p.CreditorTypes {
			t = strings.ToLower(strings.TrimSpace(t))
			if t != "" {
				p.typesLower = append(p.typesLower, t)
			}
		}
		profiles = append(profiles, p)
	}
	m.mu.Lock()
	m.snapshot = Snapshot{
		Version:  m.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Profiles: profiles,
	}
	m.mu.Unlock()
	logger.Infof("creditor profiles loaded: path=%s count=%d", m.path, len(profiles))
	return nil
}
