package domain

// Category 描述一次扫描得到的分类子目录（只做 list/stat，不读文件内容）。
type Category struct {
	Name    string
	Images  []string // 命中图片后缀的文件名，保持扫描得到的顺序
	Skipped int      // 被忽略的条目数（非图片文件、子目录）
}

// Records 把该分类下的图片展开为 Record。
func (c Category) Records() []Record {
	out := make([]Record, 0, len(c.Images))
	for _, name := range c.Images {
		out = append(out, NewRecord(c.Name, name))
	}
	return out
}
