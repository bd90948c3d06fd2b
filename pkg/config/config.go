// Package config loads Worker and Manager daemon configuration via
// viper, with environment-variable overlay (prefix CUBE) and sane
// defaults so both binaries run with zero flags in development.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// WorkerConfig configures the cube-worker binary.
type WorkerConfig struct {
	Name              string
	ListenAddr        string
	ContainerdSocket  string
	LogLevel          string
	RunLoopInterval   time.Duration
	StatsLoopInterval time.Duration
}

// ManagerConfig configures the cube-manager binary.
type ManagerConfig struct {
	ListenAddr        string
	Workers           []string
	LogLevel          string
	DispatchInterval  time.Duration
	ReconcileInterval time.Duration
}

// LoadWorker reads Worker configuration, overlaying defaults with any
// CUBE_WORKER_* environment variables and an optional config file.
func LoadWorker() (*WorkerConfig, error) {
	v := newViper("worker")

	v.SetDefault("name", "")
	v.SetDefault("listenaddr", "0.0.0.0:8901")
	v.SetDefault("containerdsocket", "/run/containerd/containerd.sock")
	v.SetDefault("loglevel", "info")
	v.SetDefault("runloopinterval", 10*time.Second)
	v.SetDefault("statsloopinterval", 10*time.Second)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg WorkerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadManager reads Manager configuration, overlaying defaults with
// any CUBE_MANAGER_* environment variables and an optional config file.
func LoadManager() (*ManagerConfig, error) {
	v := newViper("manager")

	v.SetDefault("listenaddr", "0.0.0.0:8902")
	v.SetDefault("workers", []string{})
	v.SetDefault("loglevel", "info")
	v.SetDefault("dispatchinterval", 1*time.Second)
	v.SetDefault("reconcileinterval", 10*time.Second)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg ManagerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func newViper(configName string) *viper.Viper {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/cube")

	v.SetEnvPrefix("CUBE_" + configName)
	v.AutomaticEnv()
	return v
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}
	return nil
}
