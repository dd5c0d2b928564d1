// Package bls fetches OEWS wage series from the Bureau of Labor Statistics
// public API with a regional preference chain (MSA, then state, then national).
package bls

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"skillsync/internal/config"
	"skillsync/internal/soc"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// Series suffixes select the OEWS measure.
const (
	measureMedian = "04"
	measureMean   = "03"
)

// National all-occupations annual mean wage, the last resort when no series
// exists for the occupation itself.
const allOccupationsSeries = "OEUN000000000000000000004"

const (
	nationalAreaCode = "0000"
	nationalAreaName = "United States"
)

var msaNames = map[string]string{
	"45300": "Tampa-St. Petersburg-Clearwater, FL",
}

var stateNames = map[string]string{
	"12": "Florida",
}

type WageData struct {
	SOCCode         string
	AreaCode        string
	AreaName        string
	MedianWage      *float64
	MeanWage        *float64
	EmploymentLevel *int
	DataYear        int
	RetrievedAt     time.Time
}

type seriesCandidate struct {
	id       string
	areaCode string
	areaName string
	measure  string
}

type Client struct {
	http    *resty.Client
	cfg     config.BLSConfig
	logger  *log.Logger
	limiter *rate.Limiter

	now func() time.Time
}

func NewClient(cfg config.BLSConfig, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		http:    resty.New().SetBaseURL(cfg.BaseURL).SetTimeout(30 * time.Second),
		cfg:     cfg,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		now:     time.Now,
	}
}

// RegionalWageData walks the series chain most-local-first and returns the
// first level with data. Exhausting the chain is not an error: the result is
// nil and the caller treats the occupation as having no wage data.
func (c *Client) RegionalWageData(ctx context.Context, socCode string) (*WageData, error) {
	canonical, err := soc.Canonical(socCode)
	if err != nil {
		return nil, fmt.Errorf("bls: %w", err)
	}

	series7, err := soc.BLSSeriesCode(canonical)
	if err != nil {
		return nil, fmt.Errorf("bls: %w", err)
	}

	for _, cand := range c.seriesCandidates(series7) {
		value, year, found, err := c.fetchSeries(ctx, cand.id, true)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Printf("bls=series soc=%s series=%s err=%v", canonical, cand.id, err)
			continue
		}
		if !found {
			continue
		}
		return c.wageData(canonical, cand, value, year), nil
	}

	// All-occupations national average so downstream always has something
	// to show, clearly labeled as such.
	value, year, found, err := c.fetchSeries(ctx, allOccupationsSeries, false)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Printf("bls=series soc=%s series=%s err=%v", canonical, allOccupationsSeries, err)
		return nil, nil
	}
	if !found {
		c.logger.Printf("bls=wage soc=%s status=no_data", canonical)
		return nil, nil
	}

	c.logger.Printf("bls=wage soc=%s status=all_occupations_fallback", canonical)
	return &WageData{
		SOCCode:     canonical,
		AreaCode:    nationalAreaCode,
		AreaName:    nationalAreaName + " (All Occupations Average)",
		MeanWage:    &value,
		DataYear:    year,
		RetrievedAt: c.now().UTC(),
	}, nil
}

// BatchWageData fetches wage data for many SOC codes sequentially, pacing
// requests so the public API's rate limits hold. Codes with no data are
// skipped; invalid codes are logged and skipped.
func (c *Client) BatchWageData(ctx context.Context, socCodes []string) ([]*WageData, error) {
	results := make([]*WageData, 0, len(socCodes))
	for i, code := range socCodes {
		if i > 0 {
			if err := c.limiter.Wait(ctx); err != nil {
				return results, err
			}
		}

		data, err := c.RegionalWageData(ctx, code)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			c.logger.Printf("bls=batch soc=%s err=%v", code, err)
			continue
		}
		if data != nil {
			results = append(results, data)
		}
	}
	return results, nil
}

func (c *Client) seriesCandidates(soc7 string) []seriesCandidate {
	msaName := msaNames[c.cfg.MSACode]
	if msaName == "" {
		msaName = "MSA " + c.cfg.MSACode
	}
	stateName := stateNames[c.cfg.StateCode]
	if stateName == "" {
		stateName = "State FIPS " + c.cfg.StateCode
	}

	return []seriesCandidate{
		{id: "OEUM" + c.cfg.MSACode + "000000" + soc7 + measureMedian, areaCode: c.cfg.MSACode, areaName: msaName, measure: measureMedian},
		{id: "OEUM" + c.cfg.MSACode + "000000" + soc7 + measureMean, areaCode: c.cfg.MSACode, areaName: msaName, measure: measureMean},
		{id: "OEUS" + c.cfg.StateCode + "0000000" + soc7 + measureMedian, areaCode: c.cfg.StateCode, areaName: stateName, measure: measureMedian},
		{id: "OEUS" + c.cfg.StateCode + "0000000" + soc7 + measureMean, areaCode: c.cfg.StateCode, areaName: stateName, measure: measureMean},
		{id: "OEUS000000000" + soc7 + measureMedian, areaCode: nationalAreaCode, areaName: nationalAreaName, measure: measureMedian},
		{id: "OEUS000000000" + soc7 + measureMean, areaCode: nationalAreaCode, areaName: nationalAreaName, measure: measureMean},
	}
}

// fetchSeries posts a single-series timeseries request. found=false covers
// both HTTP failures and REQUEST_SUCCEEDED responses with an empty series;
// err is reserved for transport problems worth surfacing on context errors.
func (c *Client) fetchSeries(ctx context.Context, seriesID string, withYears bool) (value float64, year int, found bool, err error) {
	body := map[string]interface{}{
		"seriesid":        []string{seriesID},
		"registrationkey": c.cfg.APIKey,
	}
	if withYears {
		endYear := c.now().Year()
		body["startyear"] = strconv.Itoa(endYear - 1)
		body["endyear"] = strconv.Itoa(endYear)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/timeseries/data")
	if err != nil {
		return 0, 0, false, err
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return 0, 0, false, nil
	}

	raw := resp.String()
	if gjson.Get(raw, "status").String() != "REQUEST_SUCCEEDED" {
		return 0, 0, false, nil
	}

	// Data points come newest first.
	latest := gjson.Get(raw, "Results.series.0.data.0")
	if !latest.Exists() {
		return 0, 0, false, nil
	}

	value, err = strconv.ParseFloat(latest.Get("value").String(), 64)
	if err != nil {
		return 0, 0, false, nil
	}
	year = int(latest.Get("year").Int())
	return value, year, true, nil
}

func (c *Client) wageData(canonical string, cand seriesCandidate, value float64, year int) *WageData {
	d := &WageData{
		SOCCode:     canonical,
		AreaCode:    cand.areaCode,
		AreaName:    cand.areaName,
		DataYear:    year,
		RetrievedAt: c.now().UTC(),
	}
	if cand.measure == measureMean {
		d.MeanWage = &value
	} else {
		d.MedianWage = &value
	}
	return d
}
