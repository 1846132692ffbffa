package domain

import "strings"

// SrcPrefix 是所有 Record.Src 的固定 web 根前缀。
const SrcPrefix = "/images"

// imageSuffixes 是可识别的图片后缀（小写；匹配时对文件名做大小写无关比较）。
var imageSuffixes = []string{".jpg", ".jpeg", ".png"}

// Record 是 manifest 中的一条记录。
//
// 不变量（实现必须遵守）：
// - Src 必须以 "/images/" 开头
// - Label 必须等于 Src 中紧跟 "/images/" 的路径段
type Record struct {
	Src   string `json:"src"`
	Label string `json:"label"`
}

// NewRecord 由分类名与文件名构造记录；文件名保持原样（不改大小写）。
func NewRecord(category, filename string) Record {
	return Record{
		Src:   SrcPrefix + "/" + category + "/" + filename,
		Label: category,
	}
}

// Filename 返回 Src 中的文件名部分（即 "/images/<label>/" 之后的内容）。
func (r Record) Filename() string {
	return strings.TrimPrefix(r.Src, SrcPrefix+"/"+r.Label+"/")
}

// IsImageName 判断文件名是否以可识别的图片后缀结尾（大小写无关）。
func IsImageName(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range imageSuffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}
