package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	_ "go.uber.org/automaxprocs"

	DIC "github.com/redlibre/grip/common"
	"github.com/redlibre/grip/ex"
	"github.com/redlibre/grip/ormx/sqld"
	"github.com/redlibre/grip/utils"
	"github.com/redlibre/grip/utils/sdk"
	"github.com/redlibre/grip/yaml"
	"github.com/redlibre/grip/zlog"
)

type flags struct {
	config   string
	endpoint string
	cell     string
	codec    string
	fn       string
	payload  string
	timeout  time.Duration
	sendTo   string
	text     string
	self     string
	read     string
	email    string
	password string
}

func parseFlags() *flags {
	f := &flags{}
	pflag.StringVarP(&f.config, "config", "c", "", "yaml config file")
	pflag.StringVar(&f.endpoint, "endpoint", "", "websocket endpoint, overrides config")
	pflag.StringVar(&f.cell, "cell", "", "target cell (DNA hash), overrides config")
	pflag.StringVar(&f.codec, "codec", "", "wire codec: json or cbor")
	pflag.StringVar(&f.fn, "fn", "", "invoke a remote function by name")
	pflag.StringVar(&f.payload, "payload", "null", "JSON payload for --fn")
	pflag.DurationVar(&f.timeout, "timeout", 0, "per-call timeout")
	pflag.StringVar(&f.sendTo, "send-to", "", "send an encrypted message to this agent")
	pflag.StringVar(&f.text, "text", "", "message text for --send-to")
	pflag.StringVar(&f.self, "self", "", "own agent id, used for conversation ids")
	pflag.StringVar(&f.read, "read", "", "read and decrypt the chat with this agent")
	pflag.StringVar(&f.email, "email", "", "login email, sets own agent id")
	pflag.StringVar(&f.password, "password", "", "login password")
	pflag.Parse()
	return f
}

func loadConfig(f *flags) (*DIC.YamlConfig, error) {
	if len(f.config) > 0 {
		if err := yaml.InitAllConfig(f.config); err != nil {
			return nil, err
		}
		return yaml.GetAllConfig(), nil
	}
	config := &DIC.YamlConfig{}
	config.ApplyEnv()
	config.InitDefaults()
	return config, nil
}

// logConfig 命令行日志一律写标准错误,标准输出只输出调用结果
func logConfig(config *DIC.YamlConfig) *zlog.ZapConfig {
	lc := config.GetLoggerConfig(DIC.MASTER)
	if lc == nil {
		return &zlog.ZapConfig{Level: zlog.WARN, Console: true, Stderr: true}
	}
	zc := &zlog.ZapConfig{Layout: lc.Layout, Level: lc.Level, Console: lc.Console, Stderr: true}
	if len(lc.Location) > 0 {
		if loc, err := time.LoadLocation(lc.Location); err == nil {
			zc.Location = loc
		}
	}
	if lc.FileConfig != nil {
		zc.FileConfig = &zlog.FileConfig{
			Filename:   lc.FileConfig.Filename,
			MaxSize:    lc.FileConfig.MaxSize,
			MaxBackups: lc.FileConfig.MaxBackups,
			MaxAge:     lc.FileConfig.MaxAge,
			Compress:   lc.FileConfig.Compress,
		}
	}
	return zc
}

// exitCode 连接类异常码映射为1-7,其余为1
func exitCode(err error) int {
	code := ex.Code(err)
	if code >= ex.CONNECT && code <= ex.CLOSED {
		return code - ex.CONNECT + 1
	}
	return 1
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "gripctl: [%d] %v\n", ex.Code(err), err)
	zlog.Sync()
	os.Exit(exitCode(err))
}

func main() {
	f := parseFlags()
	config, err := loadConfig(f)
	if err != nil {
		fail(err)
	}
	zlog.InitDefaultLog(logConfig(config))
	if len(f.endpoint) > 0 {
		config.Client.Endpoint = f.endpoint
	}
	if len(f.cell) > 0 {
		config.Client.Cell = f.cell
	}
	if len(f.codec) > 0 {
		config.Client.Codec = f.codec
	}
	if f.timeout > 0 {
		config.Client.CallTimeout = f.timeout
	}

	store, err := sqld.NewMessageStore(config.Store)
	if err != nil {
		fail(err)
	}
	client, err := sdk.NewClient(config.Client, sdk.WithCrypto(config.Crypto), sdk.WithStore(store), sdk.WithSelf(f.self))
	if err != nil {
		fail(err)
	}
	defer client.Close()

	ctx := context.Background()
	if len(f.email) > 0 {
		if _, err := client.Login(ctx, f.email, f.password); err != nil {
			client.Close()
			fail(err)
		}
	}

	switch {
	case len(f.fn) > 0:
		err = invoke(ctx, client, f)
	case len(f.sendTo) > 0:
		err = send(ctx, client, f)
	case len(f.read) > 0:
		err = read(ctx, client, f)
	default:
		pflag.Usage()
		os.Exit(2)
	}
	if err != nil {
		client.Close()
		fail(err)
	}
	zlog.Sync()
}

func invoke(ctx context.Context, client *sdk.Client, f *flags) error {
	var payload interface{}
	if err := utils.JsonUnmarshal(utils.Str2Bytes(f.payload), &payload); err != nil {
		return ex.Throw{Code: ex.JSON, Msg: "payload is not valid JSON", Err: err}
	}
	res, err := client.Invoke(ctx, f.fn, payload)
	if err != nil {
		return err
	}
	var out interface{}
	if err := res.Decode(&out); err != nil {
		return err
	}
	b, err := utils.JsonMarshalIndent(map[string]interface{}{"result": out}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(utils.Bytes2Str(b))
	return nil
}

func send(ctx context.Context, client *sdk.Client, f *flags) error {
	hash, err := client.SendMessage(ctx, f.sendTo, sdk.OutgoingMessage{Text: f.text})
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

func read(ctx context.Context, client *sdk.Client, f *flags) error {
	msgs, err := client.GetMessages(ctx, f.read)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		text, err := m.Text()
		if err != nil {
			text = "<" + err.Error() + ">"
		}
		if len(m.ImageHash) > 0 {
			text += " [image " + m.ImageHash + "]"
		}
		if len(m.VideoHash) > 0 {
			text += " [video " + m.VideoHash + "]"
		}
		fmt.Printf("%d %s: %s\n", m.Timestamp, m.SenderID, text)
	}
	return nil
}
