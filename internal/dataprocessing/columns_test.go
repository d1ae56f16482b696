package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveColumn(t *testing.T) {
	headers := []string{"发货日期", "车牌号", "单价(元)", "卖出价", "扣点%", "重量（吨）"}

	tests := []struct {
		name       string
		candidates []string
		want       string
		wantOK     bool
	}{
		{"header order wins over candidate order", []string{"卖出价", "单价"}, "单价(元)", true},
		{"substring match", []string{"扣点"}, "扣点%", true},
		{"weight with unit suffix", []string{"重量"}, "重量（吨）", true},
		{"no match", []string{"毛重"}, "", false},
		{"empty candidate list", nil, "", false},
		{"blank candidate ignored", []string{""}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveColumn(headers, tt.candidates)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeHeaders(t *testing.T) {
	got := NormalizeHeaders([]string{" 类别 ", "", "运费", "运费", "运费 "})
	assert.Equal(t, []string{"类别", "Unnamed: 1", "运费", "运费.1", "运费.2"}, got)
}
