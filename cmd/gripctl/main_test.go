package main

import (
	"errors"
	"testing"

	DIC "github.com/redlibre/grip/common"
	"github.com/redlibre/grip/ex"
	"github.com/redlibre/grip/zlog"
)

func TestLogConfigUsesStderr(t *testing.T) {
	zc := logConfig(&DIC.YamlConfig{})
	if !zc.Console || !zc.Stderr || zc.Level != zlog.WARN {
		t.Fatalf("default log config: %+v", zc)
	}
	config := &DIC.YamlConfig{Logger: map[string]*DIC.ZapConfig{
		DIC.MASTER: {Level: zlog.DEBUG, Console: true, FileConfig: &DIC.FileConfig{Filename: "grip.log", MaxSize: 1}},
	}}
	zc = logConfig(config)
	if !zc.Stderr || zc.Level != zlog.DEBUG || zc.FileConfig == nil || zc.FileConfig.Filename != "grip.log" {
		t.Fatalf("configured log config: %+v", zc)
	}
}

func TestExitCode(t *testing.T) {
	cases := map[int]error{
		1: ex.Throw{Code: ex.CONNECT, Msg: ex.CONNECT_ERR},
		3: ex.Throw{Code: ex.TIMEOUT, Msg: ex.TIMEOUT_ERR},
		4: ex.Throw{Code: ex.REMOTE, Msg: "user not found"},
		7: ex.Throw{Code: ex.CLOSED, Msg: ex.CLOSED_ERR},
	}
	for want, err := range cases {
		if got := exitCode(err); got != want {
			t.Fatalf("exit code for %v: want %d got %d", err, want, got)
		}
	}
	if exitCode(errors.New("plain")) != 1 {
		t.Fatal("plain error should exit 1")
	}
}
