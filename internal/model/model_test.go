package model

import "testing"

func TestTopic(t *testing.T) {
	if got := Topic(AlertTopicTmpl, "farm7"); got != "event/alert/farm7" {
		t.Errorf("Topic = %q", got)
	}
	if got := Topic(ReadingTopicTmpl, " "); got != "sensor/reading/unknown" {
		t.Errorf("Topic = %q", got)
	}
}

func TestFarmFromTopic(t *testing.T) {
	testCases := []struct {
		topic, prefix, want string
	}{
		{"sensor/reading/farm1", "sensor/reading", "farm1"},
		{"event/alert/farm2/extra", "event/alert/", "farm2"},
		{"other/topic", "event/alert", ""},
	}
	for _, tc := range testCases {
		if got := FarmFromTopic(tc.topic, tc.prefix); got != tc.want {
			t.Errorf("FarmFromTopic(%q, %q) = %q, want %q", tc.topic, tc.prefix, got, tc.want)
		}
	}
}
