package handler

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Console 交互式处理器使用的控制台
type Console interface {
	// Printf 输出提示信息
	Printf(format string, args ...any)

	// ReadLine 输出提示并读取一行
	ReadLine(prompt string) (string, error)

	// ReadPassword 输出提示并读取口令，终端上不回显
	ReadPassword(prompt string) (string, error)
}

// StdConsole 基于输入输出流的控制台
type StdConsole struct {
	mu     sync.Mutex
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
}

// 确保实现接口
var _ Console = (*StdConsole)(nil)

// NewStdConsole 创建控制台，in/out 为 nil 时使用 os.Stdin/os.Stdout
func NewStdConsole(in io.Reader, out io.Writer) *StdConsole {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &StdConsole{in: in, out: out, reader: bufio.NewReader(in)}
}

// Printf 输出提示信息
func (c *StdConsole) Printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// ReadLine 输出提示并读取一行（去掉行尾换行）
func (c *StdConsole) ReadLine(prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprint(c.out, prompt)
	return c.readLine()
}

// ReadPassword 输出提示并读取口令
//
// 输入为终端时关闭回显，否则按普通行读取。
func (c *StdConsole) ReadPassword(prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprint(c.out, prompt)
	if f, ok := c.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return c.readLine()
}

func (c *StdConsole) readLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
