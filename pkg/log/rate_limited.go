// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"strings"
	"time"

	"golang.org/x/time/rate"
	"gvisor.dev/pios/pkg/sync"
)

// suppressingLogger passes at most one message per interval to logger and
// counts the ones it drops. The next message it passes reports the count.
type suppressingLogger struct {
	logger Logger

	mu      sync.Mutex
	limit   *rate.Limiter
	dropped int
}

func (l *suppressingLogger) emit(level Level, logf func(string, ...any), format string, v []any) {
	if !l.logger.IsLogging(level) {
		return
	}
	l.mu.Lock()
	if !l.limit.Allow() {
		l.dropped++
		l.mu.Unlock()
		return
	}
	dropped := l.dropped
	l.dropped = 0
	l.mu.Unlock()

	if dropped > 0 {
		msg := strings.TrimSuffix(format, "\n")
		format = msg + " (%d similar messages suppressed)" + format[len(msg):]
		v = append(v[:len(v):len(v)], dropped)
	}
	logf(format, v...)
}

func (l *suppressingLogger) Debugf(format string, v ...any) {
	l.emit(Debug, l.logger.Debugf, format, v)
}

func (l *suppressingLogger) Infof(format string, v ...any) {
	l.emit(Info, l.logger.Infof, format, v)
}

func (l *suppressingLogger) Warningf(format string, v ...any) {
	l.emit(Warning, l.logger.Warningf, format, v)
}

func (l *suppressingLogger) IsLogging(level Level) bool {
	return l.logger.IsLogging(level)
}

// BasicRateLimitedLogger is RateLimitedLogger over the global logger.
func BasicRateLimitedLogger(every time.Duration) Logger {
	return RateLimitedLogger(Log(), every)
}

// RateLimitedLogger returns a Logger that passes at most one message per
// interval to logger. A message passed after others were dropped ends with
// the number dropped.
func RateLimitedLogger(logger Logger, every time.Duration) Logger {
	return &suppressingLogger{
		logger: logger,
		limit:  rate.NewLimiter(rate.Every(every), 1),
	}
}
