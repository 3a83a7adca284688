package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/replaysMike/Binner-sub003/internal/bom/dto"
)

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"3", "12"})
	require.NoError(t, err)
	require.Equal(t, []int64{3, 12}, ids)

	_, err = parseIDs([]string{"3", "x"})
	require.Error(t, err)
	_, err = parseIDs([]string{"0"})
	require.Error(t, err)
}

func bomServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/bom", func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer secret" {
			c.JSON(http.StatusUnauthorized, gin.H{"code": 40100, "message": "unauthorized"})
			return
		}
		if c.Query("name") != "Amp" {
			c.JSON(http.StatusNotFound, gin.H{"code": 40400, "message": "project not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": dto.BomResponse{
			ProjectID: 7,
			Name:      "Amp",
			Pcbs:      []dto.PcbView{{PcbID: 1, ProjectID: 7, Name: "Main", Quantity: 1}},
			Parts: []dto.LineItemView{
				{ProjectPartAssignmentID: 11, ProjectID: 7, PcbID: 1, PartName: "R1", Quantity: 2, QuantityAvailable: 10, Cost: decimal.NewFromInt(1)},
			},
			TotalCost: decimal.NewFromInt(2),
		}})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestShowReadsConnectionFromEnv(t *testing.T) {
	srv := bomServer(t)
	t.Setenv("BINNER_URL", srv.URL)
	t.Setenv("BINNER_TOKEN", "secret")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"show", "Amp"})
	require.NoError(t, root.Execute())

	require.Contains(t, out.String(), "Amp (project 7)")
	require.Contains(t, out.String(), "Producible: 5")
	require.Contains(t, out.String(), "R1")
}

func TestShowUnknownProject(t *testing.T) {
	srv := bomServer(t)

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"show", "Missing", "--url", srv.URL, "--token", "secret"})
	err := root.Execute()
	require.EqualError(t, err, `project "Missing" not found`)
}
