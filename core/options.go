package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

func NewStaticRawConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader{Values: values}
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GoOptionsResolver merges defaults, loaded config, and runtime overrides as
// layered scopes with increasing priority.
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}

	signing := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Signing.Key) != "" {
		signing["key"] = cfg.Signing.Key
	}
	if includeZero || cfg.Signing.ReplayWindowSeconds != 0 {
		signing["replay_window_seconds"] = cfg.Signing.ReplayWindowSeconds
	}
	if len(signing) > 0 {
		layer["signing"] = signing
	}

	outbound := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Outbound.BaseDomain) != "" {
		outbound["base_domain"] = cfg.Outbound.BaseDomain
	}
	if includeZero || strings.TrimSpace(cfg.Outbound.Subdomain) != "" {
		outbound["subdomain"] = cfg.Outbound.Subdomain
	}
	if includeZero || cfg.Outbound.MaxReferences != 0 {
		outbound["max_references"] = cfg.Outbound.MaxReferences
	}
	if includeZero || cfg.Outbound.SendTimeoutSeconds != 0 {
		outbound["send_timeout_seconds"] = cfg.Outbound.SendTimeoutSeconds
	}
	if len(outbound) > 0 {
		layer["outbound"] = outbound
	}

	respond := map[string]any{}
	if includeZero || cfg.Respond.GenerateTimeoutSeconds != 0 {
		respond["generate_timeout_seconds"] = cfg.Respond.GenerateTimeoutSeconds
	}
	if includeZero || cfg.Respond.ContextWindow != 0 {
		respond["context_window"] = cfg.Respond.ContextWindow
	}
	if len(respond) > 0 {
		layer["respond"] = respond
	}

	recovery := map[string]any{}
	if includeZero || cfg.Recovery.StuckAfterSeconds != 0 {
		recovery["stuck_after_seconds"] = cfg.Recovery.StuckAfterSeconds
	}
	if includeZero || cfg.Recovery.BatchSize != 0 {
		recovery["batch_size"] = cfg.Recovery.BatchSize
	}
	if len(recovery) > 0 {
		layer["recovery"] = recovery
	}

	return layer
}
