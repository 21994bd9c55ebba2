// Package diag — диагностика для отображения: снимок состояния процессора,
// часов и устройства, поток WebSocket и публикация в MQTT.
// На работу ядра не влияет.
package diag

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/iancoleman/strcase"

	"github.com/shiwa/ffb-sync/internal/clock"
	"github.com/shiwa/ffb-sync/internal/ffb"
)

// DeviceStatus — пассивный индикатор состояния устройства
type DeviceStatus struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Magnitude int    `json:"magnitude"`
}

// Report — снимок всех источников
type Report struct {
	Time      time.Time    `json:"time"`
	Processor ffb.Snapshot `json:"processor"`
	Clock     clock.Stats  `json:"clock"`
	Device    DeviceStatus `json:"device"`
}

// Recorder собирает Report по запросу и хранит последний
type Recorder struct {
	collect func() Report
	latest  atomic.Pointer[Report]
}

// NewRecorder создаёт recorder; collect вызывается из потоков sinks
func NewRecorder(collect func() Report) *Recorder {
	r := &Recorder{collect: collect}
	r.latest.Store(&Report{})
	return r
}

// Sample собирает новый снимок
func (r *Recorder) Sample() *Report {
	rep := r.collect()
	if rep.Time.IsZero() {
		rep.Time = time.Now()
	}
	r.latest.Store(&rep)
	return &rep
}

// Latest — последний собранный снимок
func (r *Recorder) Latest() *Report {
	return r.latest.Load()
}

// Field — скалярное значение с путём вида "processor/crash_scale"
type Field struct {
	Key   string
	Value string
}

// Flatten раскладывает отчёт в плоский список полей (ключи в snake_case, по алфавиту)
func Flatten(rep *Report) ([]Field, error) {
	raw, err := json.Marshal(rep)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	var out []Field
	flatten("", m, &out)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func flatten(prefix string, v interface{}, out *[]Field) {
	switch x := v.(type) {
	case map[string]interface{}:
		for k, child := range x {
			key := strcase.ToSnake(k)
			if prefix != "" {
				key = prefix + "/" + key
			}
			flatten(key, child, out)
		}
	case float64:
		*out = append(*out, Field{Key: prefix, Value: strconv.FormatFloat(x, 'g', -1, 64)})
	case bool:
		*out = append(*out, Field{Key: prefix, Value: strconv.FormatBool(x)})
	case string:
		*out = append(*out, Field{Key: prefix, Value: x})
	case nil:
	default:
		*out = append(*out, Field{Key: prefix, Value: fmt.Sprint(x)})
	}
}
