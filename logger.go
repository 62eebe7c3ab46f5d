package speech

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log 返回带 component 字段的日志入口
func Log(component string) *logrus.Entry {
	return logrus.WithField("component", component)
}

// SetupLogging 配置全局日志级别与格式
//
// # Params:
//
//	level: debug, info, warn, error
//	format: text, json
func SetupLogging(level, format string) error {
	if level == "" {
		level = "info"
	}
	lv, err := logrus.ParseLevel(level)
	if err != nil {
		return NewError(KindInvalidArgument, "log level "+level, err)
	}
	logrus.SetLevel(lv)

	switch strings.ToLower(format) {
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return NewError(KindInvalidArgument, "log format "+format, fmt.Errorf("仅支持 text 或 json"))
	}
	return nil
}
