package factory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hqdash/runtime/internal/modules/input"
	"github.com/hqdash/runtime/pkg/dataset"
)

func TestCreateInputModule(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "companies.csv")
	content := "RANK,NAME,STATE,COUNTY,LATITUDE,LONGITUDE,EMPLOYEES,REVENUES,PROFIT\n" +
		"1,Walmart,AR,Benton,36.37,-94.21,2300000,500343,9862\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	m, err := CreateInputModule(&dataset.SourceConfig{Path: path})
	if err != nil {
		t.Fatalf("CreateInputModule() error = %v", err)
	}
	defer m.Close()

	table, err := input.Load(context.Background(), m)
	if err != nil || table.Len() != 1 {
		t.Fatalf("Load() = %d rows, %v", table.Len(), err)
	}

	if _, err := CreateInputModule(&dataset.SourceConfig{Path: "data.parquet"}); !errors.Is(err, ErrUnknownSourceFormat) {
		t.Errorf("err = %v, want ErrUnknownSourceFormat", err)
	}
	if _, err := CreateInputModule(nil); !errors.Is(err, ErrNilSource) {
		t.Errorf("err = %v, want ErrNilSource", err)
	}
}

func TestCreateFilterModules(t *testing.T) {
	modules, err := CreateFilterModules([]dataset.ModuleConfig{
		{Type: "set", Config: map[string]interface{}{"column": "STATE", "values": []interface{}{"TX"}}},
		{Type: "range", Config: map[string]interface{}{"column": "PROFIT", "min": 0}},
	})
	if err != nil {
		t.Fatalf("CreateFilterModules() error = %v", err)
	}
	if len(modules) != 2 {
		t.Fatalf("got %d modules, want 2", len(modules))
	}

	_, err = CreateFilterModules([]dataset.ModuleConfig{{Type: "set", Config: map[string]interface{}{"column": "STATE"}}, {Type: "mapping"}})
	if !errors.Is(err, ErrUnknownFilterType) {
		t.Errorf("err = %v, want ErrUnknownFilterType", err)
	}

	modules, err = CreateFilterModules(nil)
	if err != nil || modules != nil {
		t.Errorf("CreateFilterModules(nil) = %v, %v", modules, err)
	}
}

func TestCreateOutputModules(t *testing.T) {
	dir := t.TempDir()
	modules, err := CreateOutputModules([]dataset.ModuleConfig{
		{Type: "csv", Config: map[string]interface{}{"path": filepath.Join(dir, "out.csv")}},
		{Type: "console"},
	})
	if err != nil {
		t.Fatalf("CreateOutputModules() error = %v", err)
	}
	if len(modules) != 2 {
		t.Fatalf("got %d modules, want 2", len(modules))
	}

	if _, err := CreateOutputModules([]dataset.ModuleConfig{{Type: "httpRequest"}}); !errors.Is(err, ErrUnknownOutputType) {
		t.Errorf("err = %v, want ErrUnknownOutputType", err)
	}
	if _, err := CreateOutputModules([]dataset.ModuleConfig{{Type: "csv", Config: map[string]interface{}{}}}); err == nil {
		t.Error("csv without path should fail")
	}
}

func TestKnownTypes(t *testing.T) {
	types := KnownTypes()
	if len(types["input"]) == 0 || len(types["filter"]) == 0 || len(types["output"]) == 0 {
		t.Errorf("KnownTypes() = %v", types)
	}
}
