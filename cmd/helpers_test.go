package main

import (
	"archive/zip"
	"bytes"
	"io"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/leadsplit/internal/balance"
	"github.com/sells-group/leadsplit/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.Store.Driver = "none"
	c.Server = config.ServerConfig{
		Port:           8080,
		RateLimitRPS:   100,
		RateBurst:      100,
		MaxUploadMB:    1,
		AllowedOrigins: []string{"*"},
	}
	c.Input = config.InputConfig{MailingSheet: "Mailing", DialerSheet: "Discador", LogCharset: "utf-8"}
	c.Columns = config.ColumnsConfig{
		AccountKey: "CONTRATO",
		TaxID:      "CPF_CNPJ",
		Owner:      "RESPONSAVEL",
		ContactKey: "CONTRATO",
		Phones:     []string{"CELULAR"},
		LogKey:     "CONTRATO",
	}
	c.Balance = config.BalanceConfig{
		ReservedTokens: balance.DefaultReservedTokens,
		MaxAgents:      balance.DefaultMaxAgents,
		RelevelFactor:  balance.DefaultRelevelFactor,
		Seed:           1,
	}
	c.Sync.MatchRateThreshold = 0.95
	c.Export = config.ExportConfig{OutputDir: t.TempDir(), Concurrency: 2, IncludeMailing: true}
	return c
}

func createWorkbook(t *testing.T, sheets map[string][][]string) []byte {
	t.Helper()
	f := xlsx.NewFile()
	for _, name := range []string{"Mailing", "Discador"} {
		rows, ok := sheets[name]
		if !ok {
			continue
		}
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				row.AddCell().SetString(cellData)
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

// morningWorkbook has one orphan fleet owner and one independent owned by
// AGENT_A.
func morningWorkbook(t *testing.T) []byte {
	return createWorkbook(t, map[string][][]string{
		"Mailing": {
			{"CONTRATO", "CPF_CNPJ", "RESPONSAVEL"},
			{"1", "12345678901234", ""},
			{"2", "12345678901", "AGENT_A"},
		},
		"Discador": {
			{"CONTRATO", "CELULAR"},
			{"1", "11987654321"},
			{"2", "11912345678"},
		},
	})
}

// afternoonWorkbook has two fleet owners split between AGENT_A and AGENT_B.
func afternoonWorkbook(t *testing.T) []byte {
	return createWorkbook(t, map[string][][]string{
		"Mailing": {
			{"CONTRATO", "CPF_CNPJ", "RESPONSAVEL"},
			{"1", "12345678901234", "AGENT_A"},
			{"2", "12345678901234", "AGENT_B"},
		},
		"Discador": {
			{"CONTRATO", "CELULAR"},
			{"1", "11987654321"},
			{"2", "11912345678"},
		},
	})
}

type upload struct {
	field, filename string
	data            []byte
}

func multipartBody(t *testing.T, files ...upload) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		w, err := mw.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = w.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func zipNames(t *testing.T, data []byte) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func zipFile(t *testing.T, data []byte, name string) []byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close() //nolint:errcheck
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		return b
	}
	t.Fatalf("zip entry %s not found", name)
	return nil
}
