package drm

import (
	"reflect"
	"testing"
)

func TestParseDeviceListPlain(t *testing.T) {
	include, exclude := ParseDeviceList("/dev/dri/card0:/dev/dri/card1")
	if !reflect.DeepEqual(include, []string{"/dev/dri/card0", "/dev/dri/card1"}) {
		t.Errorf("include = %v", include)
	}
	if exclude != nil {
		t.Errorf("exclude = %v, want nil", exclude)
	}
}

func TestParseDeviceListExclude(t *testing.T) {
	include, exclude := ParseDeviceList("!/dev/dri/card0")
	if include != nil {
		t.Errorf("include = %v, want nil", include)
	}
	if !reflect.DeepEqual(exclude, []string{"/dev/dri/card0"}) {
		t.Errorf("exclude = %v", exclude)
	}
}

func TestParseDeviceListEmpty(t *testing.T) {
	include, exclude := ParseDeviceList("")
	if include != nil || exclude != nil {
		t.Errorf("expected nil, nil for empty value, got %v, %v", include, exclude)
	}
}

func TestFilterIncludeOverridesExclude(t *testing.T) {
	paths := []string{"/dev/dri/card0", "/dev/dri/card1", "/dev/dri/card2"}
	got := Filter(paths, []string{"/dev/dri/card1"}, []string{"/dev/dri/card1"})
	if !reflect.DeepEqual(got, []string{"/dev/dri/card1"}) {
		t.Errorf("got %v", got)
	}
}

func TestFilterExcludeOnly(t *testing.T) {
	paths := []string{"/dev/dri/card0", "/dev/dri/card1", "/dev/dri/card2"}
	got := Filter(paths, nil, []string{"/dev/dri/card1"})
	want := []string{"/dev/dri/card0", "/dev/dri/card2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFilterNoRestriction(t *testing.T) {
	paths := []string{"/dev/dri/card0", "/dev/dri/card1"}
	got := Filter(paths, nil, nil)
	if !reflect.DeepEqual(got, paths) {
		t.Errorf("got %v, want %v", got, paths)
	}
}
