package content

import (
	"gopkg.in/yaml.v3"

	"github.com/spf13/afero"
)

// LoadChangelog 读取 changelog.yaml；缺失或格式错误返回空列表。
func (r *Repository) LoadChangelog() []ChangelogEntry {
	raw, err := afero.ReadFile(r.fs, changelogFile)
	if err != nil {
		r.softFail("load_changelog", changelogFile, err)
		return []ChangelogEntry{}
	}
	var doc struct {
		Entries []ChangelogEntry `yaml:"entries"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		r.softFail("load_changelog", changelogFile, &DecodeError{Path: changelogFile, Err: err})
		return []ChangelogEntry{}
	}
	if doc.Entries == nil {
		return []ChangelogEntry{}
	}
	return doc.Entries
}
