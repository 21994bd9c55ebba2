// Package logger — единый вывод логов ffb-sync с префиксом и учётом quiet/verbose.
package logger

import "log"

// Quiet при true отключает информационные сообщения (Info, Debug); Warn и Error выводятся всегда.
var Quiet bool

// Verbose включает Debug. Не действует при Quiet.
var Verbose bool

const prefix = "ffb-sync: "

// Info выводит сообщение с префиксом "ffb-sync: ", если Quiet == false.
func Info(format string, args ...interface{}) {
	if Quiet {
		return
	}
	log.Printf(prefix+format, args...)
}

// Debug — подробные сообщения (переходы состояний, параметры устройств).
func Debug(format string, args ...interface{}) {
	if Quiet || !Verbose {
		return
	}
	log.Printf(prefix+"debug: "+format, args...)
}

// Warn выводит предупреждение всегда.
func Warn(format string, args ...interface{}) {
	log.Printf(prefix+"warn: "+format, args...)
}

// Error выводит сообщение об ошибке с префиксом "ffb-sync: " всегда.
func Error(format string, args ...interface{}) {
	log.Printf(prefix+format, args...)
}
