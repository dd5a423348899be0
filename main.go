/*
 * FTN77 - Main process.
 *
 * Copyright 2025, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package main

import (
	"io"
	"log/slog"
	"os"

	getopt "github.com/pborman/getopt/v2"

	"github.com/rcornwell/ftn77/ftn/cal"
	"github.com/rcornwell/ftn77/ftn/listing"
	"github.com/rcornwell/ftn77/ftn/parser"
	scan "github.com/rcornwell/ftn77/ftn/scanner"
	"github.com/rcornwell/ftn77/ftn/symbols"
	logger "github.com/rcornwell/ftn77/util/logger"
)

var Logger *slog.Logger

func main() {
	optInput := getopt.StringLong("input", 'i', "", "Source input file")
	optListing := getopt.StringLong("listing", 'l', "-", "Listing output (- stdout, 0 none, or file)")
	optOutput := getopt.StringLong("output", 'o', "", "Object (CAL) output file")
	optSource := getopt.BoolLong("source", 's', "Echo source into object as comments")
	optStatic := getopt.BoolLong("static", 'S', "Allocate locals statically")
	optLogFile := getopt.StringLong("log", 0, "", "Log file")
	optDebug := getopt.BoolLong("debug", 'd', "Mirror debug records to stderr")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var logDest io.Writer
	if *optLogFile != "" {
		if file, err := os.Create(*optLogFile); err == nil {
			logDest = file
		}
	}
	Logger = slog.New(logger.NewHandler(logDest, optDebug))
	slog.SetDefault(Logger)

	source := *optInput
	if source == "" {
		if args := getopt.Args(); len(args) > 0 {
			source = args[0]
		}
	}
	if source == "" {
		Logger.Error("Please specify a source file")
		os.Exit(1)
	}

	src, err := os.Open(source)
	if err != nil {
		Logger.Error("Can't open source file " + source)
		os.Exit(1)
	}
	defer src.Close()

	var lstW io.Writer
	switch *optListing {
	case "-":
		lstW = os.Stdout
	case "0":
		lstW = nil
	default:
		file, err := os.Create(*optListing)
		if err != nil {
			Logger.Error("Can't create listing file " + *optListing)
			os.Exit(1)
		}
		defer file.Close()
		lstW = file
	}

	objName := *optOutput
	if objName == "" {
		objName = source + ".cal"
	}
	obj, err := os.Create(objName)
	if err != nil {
		Logger.Error("Can't create object file " + objName)
		os.Exit(1)
	}
	defer obj.Close()

	Logger.Info("FTN77 compiling " + source)

	tbl := symbols.NewTable()
	emit := cal.NewEmitter(obj, tbl)
	lst := listing.New(lstW)
	p := parser.New(scan.New(src), emit, lst, Logger, parser.Options{
		StaticLocals: *optStatic,
		EchoSource:   *optSource,
	})

	if err := p.Compile(); err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}
	os.Exit(0)
}
