package router

import "testing"

func TestRoute(t *testing.T) {
	tests := []struct {
		name          string
		score         float64
		executedTools []string
		toolIndex     int
		nodeTools     []string
		want          Label
	}{
		{
			name:          "loop guard fires before anything else",
			score:         9.0,
			executedTools: []string{"t1", "t1", "t1"},
			toolIndex:     0,
			nodeTools:     []string{"t1", "t2"},
			want:          NextTool,
		},
		{
			name:          "loop guard at end of list falls to next_step",
			score:         9.0,
			executedTools: []string{"t1", "t1", "t1"},
			toolIndex:     0,
			nodeTools:     []string{"t1"},
			want:          NextStep,
		},
		{
			name:          "already last tool in node",
			score:         9.0,
			executedTools: []string{"t1"},
			toolIndex:     0,
			nodeTools:     []string{"t1"},
			want:          NextStep,
		},
		{
			name:          "next tool already executed",
			score:         2.0,
			executedTools: []string{"t1", "t2"},
			toolIndex:     0,
			nodeTools:     []string{"t1", "t2"},
			want:          NextStep,
		},
		{
			name:          "good score advances",
			score:         8.0,
			executedTools: []string{"t1"},
			toolIndex:     0,
			nodeTools:     []string{"t1", "t2"},
			want:          NextTool,
		},
		{
			name:          "low score retries",
			score:         4.0,
			executedTools: []string{"t1"},
			toolIndex:     0,
			nodeTools:     []string{"t1", "t2"},
			want:          RetrySame,
		},
		{
			name:          "threshold boundary is inclusive",
			score:         7.0,
			executedTools: []string{"t1"},
			toolIndex:     0,
			nodeTools:     []string{"t1", "t2"},
			want:          NextTool,
		},
		{
			name:          "empty history does not panic the loop guard",
			score:         4.0,
			executedTools: nil,
			toolIndex:     0,
			nodeTools:     []string{"t1", "t2"},
			want:          RetrySame,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Route(tt.score, tt.executedTools, tt.toolIndex, tt.nodeTools)
			if got != tt.want {
				t.Errorf("Route(%v, %v, %d, %v) = %q, want %q",
					tt.score, tt.executedTools, tt.toolIndex, tt.nodeTools, got, tt.want)
			}
		})
	}
}

func TestConsecutiveTail(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want int
	}{
		{"empty", nil, 0},
		{"single", []string{"a"}, 1},
		{"run of three", []string{"a", "b", "b", "b"}, 3},
		{"no repeat at tail", []string{"b", "b", "a"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := consecutiveTail(tt.in); got != tt.want {
				t.Errorf("consecutiveTail(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
