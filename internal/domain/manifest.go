package domain

import (
	"bytes"
	"encoding/json"
	"sort"
)

const (
	ErrCodeScanFailed   = "scan_failed"
	ErrCodeEncodeFailed = "encode_failed"
	ErrCodeWriteFailed  = "write_failed"
)

// Manifest 是对外稳定输出（data.json）的结构：序列化为顶层 JSON 数组。
type Manifest struct {
	Records []Record
}

// NewManifest 汇总各分类的记录并 Finalize。
func NewManifest(categories []Category) Manifest {
	n := 0
	for _, c := range categories {
		n += len(c.Images)
	}
	m := Manifest{Records: make([]Record, 0, n)}
	for _, c := range categories {
		m.Records = append(m.Records, c.Records()...)
	}
	m.Finalize()
	return m
}

// Finalize 做两件事：
// 1) records 稳定排序：先按 label，再按文件名（字节序）
// 2) nil 归一为空切片，保证输出 [] 而不是 null
func (m *Manifest) Finalize() {
	if m.Records == nil {
		m.Records = []Record{}
	}
	sort.SliceStable(m.Records, func(i, j int) bool {
		a, b := m.Records[i], m.Records[j]
		if a.Label != b.Label {
			return a.Label < b.Label
		}
		return a.Filename() < b.Filename()
	})
}

// Len 返回记录条数。
func (m Manifest) Len() int { return len(m.Records) }

// Encode 输出落盘格式：2 空格缩进、不转义 HTML 字符、末尾带换行。
func (m Manifest) Encode() ([]byte, error) {
	records := m.Records
	if records == nil {
		records = []Record{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
