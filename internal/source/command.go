package source

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/Hara602/tila/internal/model"
)

// Command 为每个设备启动一个外部进程 (默认 xinput test <id>)
type Command struct {
	Template []string
}

func NewCommand(template []string) *Command {
	return &Command{Template: template}
}

func (c *Command) Open(id model.DeviceID) (LineSource, error) {
	if len(c.Template) == 0 {
		return nil, errors.New("empty event source command")
	}
	argv := Expand(c.Template, id)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = sysProcAttr()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe for %v: %w", argv, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("unable to spawn %v: %w", argv, err)
	}

	return &readerSource{
		r: bufio.NewReader(stdout),
		closer: func() error {
			// 进程可能还在运行 (例如被取消), 先杀掉再回收
			_ = cmd.Process.Kill()
			err := cmd.Wait()
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				// 被杀或自行退出都属于流结束
				return nil
			}
			return err
		},
	}, nil
}

// Run 运行命令直到结束并返回它的标准输出
func Run(ctx context.Context, argv []string) (string, error) {
	if len(argv) == 0 {
		return "", errors.New("empty command")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.SysProcAttr = sysProcAttr()
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("run %v: %w", argv, err)
	}
	return stdout.String(), nil
}
