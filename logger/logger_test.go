package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogLevels(t *testing.T) {
	// Создаем буфер для захвата вывода
	var buf bytes.Buffer

	// Создаем логгер с уровнем DEBUG и нашим буфером
	logger := NewWithOutput(DEBUG, FormatConsole, &buf)

	// Тестируем все уровни
	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()

	// Проверяем, что все сообщения присутствуют
	if !strings.Contains(output, "DEBUG\tdebug message") {
		t.Error("DEBUG message not found")
	}
	if !strings.Contains(output, "INFO\tinfo message") {
		t.Error("INFO message not found")
	}
	if !strings.Contains(output, "WARN\twarn message") {
		t.Error("WARN message not found")
	}
	if !strings.Contains(output, "ERROR\terror message") {
		t.Error("ERROR message not found")
	}
}

func TestLogLevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	// Создаем логгер с уровнем ERROR
	logger := NewWithOutput(ERROR, FormatConsole, &buf)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()

	// Проверяем, что только ERROR сообщения присутствуют
	if strings.Contains(output, "debug message") {
		t.Error("DEBUG message should be filtered out")
	}
	if strings.Contains(output, "info message") {
		t.Error("INFO message should be filtered out")
	}
	if strings.Contains(output, "warn message") {
		t.Error("WARN message should be filtered out")
	}
	if !strings.Contains(output, "ERROR\terror message") {
		t.Error("ERROR message not found")
	}
}

func TestSetLevelAtRuntime(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(ERROR, FormatConsole, &buf)

	logger.Info("before")
	logger.SetLevel(DEBUG)
	logger.Info("after")

	output := buf.String()
	if strings.Contains(output, "before") {
		t.Error("message logged before level change should be filtered out")
	}
	if !strings.Contains(output, "after") {
		t.Error("message logged after level change not found")
	}
	if logger.GetLevel() != DEBUG {
		t.Errorf("Expected level DEBUG, got %v", logger.GetLevel())
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(INFO, FormatJSON, &buf)

	logger.Info("user %d resolved", 42)

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["level"] != "INFO" {
		t.Errorf("Expected level INFO, got %v", entry["level"])
	}
	if entry["msg"] != "user 42 resolved" {
		t.Errorf("Expected formatted message, got %v", entry["msg"])
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", DEBUG},
		{"DEBUG", DEBUG},
		{"info", INFO},
		{"INFO", INFO},
		{"warn", WARN},
		{"WARN", WARN},
		{"warning", WARN},
		{"WARNING", WARN},
		{"error", ERROR},
		{"ERROR", ERROR},
		{"invalid", INFO}, // по умолчанию INFO
		{"", INFO},        // по умолчанию INFO
	}

	for _, test := range tests {
		result := ParseLogLevel(test.input)
		if result != test.expected {
			t.Errorf("ParseLogLevel(%q) = %v, expected %v", test.input, result, test.expected)
		}
	}
}

func TestGlobalLogger(t *testing.T) {
	// Сохраняем оригинальный логгер
	originalLogger := globalLogger
	defer func() {
		globalLogger = originalLogger
	}()

	var buf bytes.Buffer

	// Заменяем глобальный логгер на наш тестовый
	globalLogger = NewWithOutput(WARN, FormatConsole, &buf)

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")

	output := buf.String()

	// Проверяем фильтрацию
	if strings.Contains(output, "debug message") {
		t.Error("DEBUG message should be filtered out")
	}
	if strings.Contains(output, "info message") {
		t.Error("INFO message should be filtered out")
	}
	if !strings.Contains(output, "WARN\twarn message") {
		t.Error("WARN message not found")
	}
	if !strings.Contains(output, "ERROR\terror message") {
		t.Error("ERROR message not found")
	}
	if GetGlobalLevel() != WARN {
		t.Errorf("Expected global level WARN, got %v", GetGlobalLevel())
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{DEBUG, "DEBUG"},
		{INFO, "INFO"},
		{WARN, "WARN"},
		{ERROR, "ERROR"},
		{LogLevel(999), "UNKNOWN"},
	}

	for _, test := range tests {
		result := test.level.String()
		if result != test.expected {
			t.Errorf("LogLevel(%d).String() = %q, expected %q", test.level, result, test.expected)
		}
	}
}
