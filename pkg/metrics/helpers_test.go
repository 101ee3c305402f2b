package metrics

import (
	dto "github.com/prometheus/client_model/go"
)

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func findMetric(mfs []*dto.MetricFamily, name, label, value string) *dto.Metric {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return nil
	}
	for _, metric := range mf.GetMetric() {
		for _, pair := range metric.GetLabel() {
			if pair.GetName() == label && pair.GetValue() == value {
				return metric
			}
		}
	}
	return nil
}

func counterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, bool) {
	metric := findMetric(mfs, name, label, value)
	if metric == nil {
		return 0, false
	}
	return metric.GetCounter().GetValue(), true
}

func histogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, bool) {
	metric := findMetric(mfs, name, label, value)
	if metric == nil {
		return 0, false
	}
	return metric.GetHistogram().GetSampleSum(), true
}
