package zlog

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	DEBUG = "debug"
	INFO  = "info"
	WARN  = "warn"
	ERROR = "error"
	FATAL = "fatal"
)

var (
	defaultLog *zap.Logger
	debugMode  bool
	mu         sync.RWMutex
)

// ZapConfig 日志配置
type ZapConfig struct {
	Layout     int64              // 时间格式,0为毫秒时间戳,1为ISO8601
	Location   *time.Location     // 时区
	Level      string             // 日志级别
	Console    bool               // 是否输出到控制台
	Stderr     bool               // 控制台输出改为标准错误,标准输出留给命令结果
	FileConfig *FileConfig        // 文件输出配置,为空则不写文件
	Callfunc   func([]byte) error // 日志回调,每条编码后的日志都会送达
	Fields     map[string]string  // 固定附加字段
}

// FileConfig 日志文件滚动配置
type FileConfig struct {
	Filename   string // 日志文件路径
	MaxSize    int    // 每个日志文件保存的最大尺寸 单位：M
	MaxBackups int    // 日志文件最多保存多少个备份
	MaxAge     int    // 文件最多保存多少天
	Compress   bool   // 是否压缩
}

type callWriter struct {
	call func([]byte) error
}

func (w callWriter) Write(b []byte) (int, error) {
	// zap复用缓冲区,回调前需复制
	c := make([]byte, len(b))
	copy(c, b)
	if err := w.call(c); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (w callWriter) Sync() error {
	return nil
}

func init() {
	defaultLog = buildLog(&ZapConfig{Level: INFO, Console: true})
}

func getLevel(level string) zapcore.Level {
	switch level {
	case DEBUG:
		return zap.DebugLevel
	case WARN:
		return zap.WarnLevel
	case ERROR:
		return zap.ErrorLevel
	case FATAL:
		return zap.FatalLevel
	default:
		return zap.InfoLevel
	}
}

func buildLog(config *ZapConfig) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "linenum",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
	loc := config.Location
	if loc == nil {
		loc = time.Local
	}
	if config.Layout == 1 {
		encoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.In(loc).Format("2006-01-02T15:04:05.000Z0700"))
		}
	} else {
		encoderConfig.EncodeTime = zapcore.EpochMillisTimeEncoder
	}
	var writers []zapcore.WriteSyncer
	if config.FileConfig != nil && len(config.FileConfig.Filename) > 0 {
		writers = append(writers, zapcore.AddSync(&lumberjack.Logger{
			Filename:   config.FileConfig.Filename,
			MaxSize:    config.FileConfig.MaxSize,
			MaxBackups: config.FileConfig.MaxBackups,
			MaxAge:     config.FileConfig.MaxAge,
			Compress:   config.FileConfig.Compress,
		}))
	}
	if config.Console {
		if config.Stderr {
			writers = append(writers, zapcore.Lock(os.Stderr))
		} else {
			writers = append(writers, zapcore.AddSync(os.Stdout))
		}
	}
	if config.Callfunc != nil {
		writers = append(writers, callWriter{call: config.Callfunc})
	}
	if len(writers) == 0 {
		if config.Stderr {
			writers = append(writers, zapcore.Lock(os.Stderr))
		} else {
			writers = append(writers, zapcore.AddSync(os.Stdout))
		}
	}
	atomicLevel := zap.NewAtomicLevelAt(getLevel(config.Level))
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.NewMultiWriteSyncer(writers...), atomicLevel)
	options := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1)}
	if len(config.Fields) > 0 {
		fields := make([]zap.Field, 0, len(config.Fields))
		for k, v := range config.Fields {
			fields = append(fields, zap.String(k, v))
		}
		options = append(options, zap.Fields(fields...))
	}
	return zap.New(core, options...)
}

// InitDefaultLog 初始化全局日志
func InitDefaultLog(config *ZapConfig) *zap.Logger {
	if config == nil {
		config = &ZapConfig{Level: INFO, Console: true}
	}
	logger := buildLog(config)
	mu.Lock()
	defaultLog = logger
	debugMode = config.Level == DEBUG
	mu.Unlock()
	return logger
}

// InitNewLog 创建独立日志实例
func InitNewLog(config *ZapConfig) *zap.Logger {
	if config == nil {
		config = &ZapConfig{Level: INFO, Console: true}
	}
	return buildLog(config)
}

func current() *zap.Logger {
	mu.RLock()
	l := defaultLog
	mu.RUnlock()
	return l
}

// IsDebug 是否开启debug级别
func IsDebug() bool {
	mu.RLock()
	defer mu.RUnlock()
	return debugMode
}

func withCost(start int64, fields []zap.Field) []zap.Field {
	if start > 0 {
		fields = append(fields, zap.Int64("cost", time.Now().UnixMilli()-start))
	}
	return fields
}

func Debug(msg string, start int64, fields ...zap.Field) {
	current().Debug(msg, withCost(start, fields)...)
}

func Info(msg string, start int64, fields ...zap.Field) {
	current().Info(msg, withCost(start, fields)...)
}

func Warn(msg string, start int64, fields ...zap.Field) {
	current().Warn(msg, withCost(start, fields)...)
}

func Error(msg string, start int64, fields ...zap.Field) {
	current().Error(msg, withCost(start, fields)...)
}

func Printf(msg string, args ...interface{}) {
	current().Info(fmt.Sprintf(msg, args...))
}

func Println(msg string) {
	current().Info(msg)
}

// Sync 刷新缓冲
func Sync() error {
	return current().Sync()
}

func String(key string, val string) zap.Field {
	return zap.String(key, val)
}

func Int(key string, val int) zap.Field {
	return zap.Int(key, val)
}

func Int64(key string, val int64) zap.Field {
	return zap.Int64(key, val)
}

func Uint64(key string, val uint64) zap.Field {
	return zap.Uint64(key, val)
}

func Bool(key string, val bool) zap.Field {
	return zap.Bool(key, val)
}

func Duration(key string, val time.Duration) zap.Field {
	return zap.Duration(key, val)
}

func Any(key string, val interface{}) zap.Field {
	return zap.Any(key, val)
}

func AddError(errs ...error) zap.Field {
	if len(errs) == 1 {
		return zap.NamedError("error", errs[0])
	}
	return zap.Errors("error", errs)
}
