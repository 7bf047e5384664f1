package casec

// emitter_templates.go holds the fixed, hand-formatted C++ text the
// emitter splices into every generated program (spec.md §4.8, §9 DESIGN
// NOTES: "specified textually here... formatted from string templates
// rather than reconstructed programmatically"). Built with the teacher's
// outputWriter rather than text/template, matching gen.go/genc.go's own
// hand-rolled string assembly (see DESIGN.md).

const fixedIncludes = `#include <iostream>
#include <string>
#include <vector>
#include <fstream>
#include <stdexcept>
#include <cmath>
#include <queue>
#include <mutex>
#include <condition_variable>
#include <thread>
#include <chrono>
#include <functional>
#include <algorithm>
`

// channelTemplate is the generic blocking single-producer/single-consumer
// channel type emitted into every generated program (spec.md §4.8's
// "generated channel type" paragraph): send locks, appends, and signals;
// recv locks, waits until non-empty, then pops. FIFO per channel.
const channelTemplate = `template <typename T>
class Channel {
public:
    void send(T value) {
        std::lock_guard<std::mutex> lock(mu_);
        queue_.push(std::move(value));
        cv_.notify_one();
    }
    T recv() {
        std::unique_lock<std::mutex> lock(mu_);
        cv_.wait(lock, [this] { return !queue_.empty(); });
        T value = std::move(queue_.front());
        queue_.pop();
        return value;
    }
private:
    std::queue<T> queue_;
    std::mutex mu_;
    std::condition_variable cv_;
};
`

// schedulerTemplate backs `Schedule pr { body }`: a one-task scheduler
// that sorts its pending tasks by priority and runs them (spec.md §4.8).
const schedulerTemplate = `class Scheduler {
public:
    void schedule(int priority, std::function<void()> task) {
        tasks_.push_back({priority, std::move(task)});
    }
    void run() {
        std::stable_sort(tasks_.begin(), tasks_.end(),
            [](const auto& a, const auto& b) { return a.first > b.first; });
        for (auto& t : tasks_) t.second();
        tasks_.clear();
    }
private:
    std::vector<std::pair<int, std::function<void()>>> tasks_;
};
`

// quantumEpochsAlias backs Duration lowering for units outside the known
// chrono set (spec.md §4.8: "unknown units mapped to a synthesized
// quantum_epochs alias").
const quantumEpochsAlias = `using quantum_epochs = std::chrono::duration<double, std::ratio<1>>;
`

// chronoUnit maps a CASE duration unit string to its std::chrono type, or
// "" if the unit is unrecognized and quantum_epochs should be used instead.
func chronoUnit(unit string) string {
	switch unit {
	case "ns":
		return "std::chrono::nanoseconds"
	case "us":
		return "std::chrono::microseconds"
	case "ms":
		return "std::chrono::milliseconds"
	case "s":
		return "std::chrono::seconds"
	case "min":
		return "std::chrono::minutes"
	case "h":
		return "std::chrono::hours"
	default:
		return ""
	}
}

// fileModeFlags translates a pipe-separated subset of {in, out, app,
// binary} into the corresponding std::ios_base::openmode expression
// (spec.md §4.8's Open rule).
func fileModeFlags(mode string) string {
	parts := splitPipe(mode)
	if len(parts) == 0 {
		return "std::ios_base::in"
	}
	flags := ""
	for _, p := range parts {
		var f string
		switch p {
		case "in":
			f = "std::ios_base::in"
		case "out":
			f = "std::ios_base::out"
		case "app":
			f = "std::ios_base::app"
		case "binary":
			f = "std::ios_base::binary"
		default:
			continue
		}
		if flags == "" {
			flags = f
		} else {
			flags += " | " + f
		}
	}
	if flags == "" {
		return "std::ios_base::in"
	}
	return flags
}

func splitPipe(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '|' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	for i := range out {
		out[i] = trimSpace(out[i])
	}
	return out
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}
	return s[start:end]
}
