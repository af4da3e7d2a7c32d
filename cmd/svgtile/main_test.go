package main

import (
	"reflect"
	"strings"
	"testing"
)

func TestInterspersed(t *testing.T) {
	for _, test := range []struct {
		args, exp string
	}{
		{
			"svgtile split plan.svg --tile-width 200 --tile-height 100 --overlap 5 --out tiles",
			"svgtile split --tile-width 200 --tile-height 100 --overlap 5 --out tiles -- plan.svg",
		},
		{
			"svgtile --config cfg.yaml split --tile-width=200 plan.svg --reclose",
			"svgtile --config cfg.yaml split --tile-width=200 --reclose -- plan.svg",
		},
		{
			"svgtile split --tile-width 20 -- -odd.svg",
			"svgtile split --tile-width 20 -- -odd.svg",
		},
		{"svgtile --help", "svgtile --help"},
		{"svgtile serve", "svgtile serve"},
	} {
		got := interspersed(strings.Fields(test.args))
		if exp := strings.Fields(test.exp); !reflect.DeepEqual(got, exp) {
			t.Errorf("%s: expected %q, got %q", test.args, exp, got)
		}
	}
}
