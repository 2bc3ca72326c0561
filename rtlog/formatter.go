// SPDX-License-Identifier: Apache-2.0

package rtlog

import (
	"bytes"

	"github.com/sirupsen/logrus"
)

const fieldRequestID = "request_id"

var levelNames = map[logrus.Level]string{
	logrus.ErrorLevel: "ERROR",
	logrus.WarnLevel:  "WARN",
	logrus.InfoLevel:  "INFO",
	logrus.DebugLevel: "DEBUG",
}

// lineFormatter renders "<LEVEL>\t<request_id or \"-\">\t<message>\n",
// the wire format this spec mandates for handler-visible log lines.
type lineFormatter struct{}

func (f *lineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	reqID, _ := e.Data[fieldRequestID].(string)
	if reqID == "" {
		reqID = noRequestID
	}

	level, ok := levelNames[e.Level]
	if !ok {
		level = "INFO"
	}

	var buf bytes.Buffer
	buf.WriteString(level)
	buf.WriteByte('\t')
	buf.WriteString(reqID)
	buf.WriteByte('\t')
	buf.WriteString(e.Message)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
